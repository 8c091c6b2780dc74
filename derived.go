package protoplot

import (
	"github.com/minor-industries/protoplot/broker"
	"github.com/minor-industries/protoplot/schema"
)

func (p *Plotter) computeDerivedSeries(msgCh chan broker.Message) {
	for msg := range msgCh {
		m, ok := msg.(schema.Sample)
		if !ok || m.SeriesID != p.seriesID {
			continue
		}

		for _, d := range p.derived {
			out, ok := d.Process(m)
			if !ok {
				continue
			}
			p.broker.Publish(out)
		}
	}
}
