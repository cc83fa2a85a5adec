package album

import (
	"time"

	"k8s.io/klog/v2"
)

// Enrich derives the capture date and GPS coordinates of each picture from its
// raw metadata. Malformed fields are logged and left unset.
func Enrich(pics []*Picture, loc *time.Location) {
	for _, p := range pics {
		if p.Metadata == nil {
			continue
		}

		d, err := p.Metadata.Date(loc)
		if err != nil {
			klog.V(1).Infof("%s: no date: %v", p.Path, err)
		} else {
			p.Date = d
		}

		c, err := p.Metadata.GPS()
		if err != nil {
			klog.V(2).Infof("%s: no gps: %v", p.Path, err)
		} else {
			p.GPS = c
		}
	}
}
