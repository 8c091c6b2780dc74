package protoplot

import (
	"github.com/minor-industries/protoplot/broker"
	"github.com/minor-industries/protoplot/schema"
	"github.com/pkg/errors"
)

func (p *Plotter) publishToDB(msgCh chan broker.Message) {
	for msg := range msgCh {
		switch m := msg.(type) {
		case schema.Sample:
			if err := p.backend.InsertSample(m); err != nil {
				p.reportError(errors.Wrap(err, "insert sample"))
				return
			}
		}
	}
}
