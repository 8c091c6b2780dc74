package protoplot

import (
	"github.com/chrispappas/golang-generics-set/set"
	"github.com/minor-industries/protoplot/messages"
	"github.com/minor-industries/protoplot/schema"
	"github.com/pkg/errors"
	"time"
)

// SubscriptionRequest is the first frame a chart client sends on /ws.
type SubscriptionRequest struct {
	// Series limits the stream to these series ids. Empty means all series.
	Series []int `json:"series"`

	// LastX resumes after the last point the client already has. Nil sends
	// the whole retained window.
	LastX *int64 `json:"lastX"`
}

type subscription struct {
	all    bool
	series set.Set[int]
	lastX  int64
}

func newSubscription(req *SubscriptionRequest) *subscription {
	sub := &subscription{
		all:    len(req.Series) == 0,
		series: set.FromSlice(req.Series),
		lastX:  -1,
	}
	if req.LastX != nil {
		sub.lastX = *req.LastX
	}
	return sub
}

func (sub *subscription) wants(s schema.Sample) bool {
	if sub.lastX >= 0 && s.X <= uint64(sub.lastX) {
		return false
	}
	return sub.all || sub.series.Has(s.SeriesID)
}

func (p *Plotter) getInitialData(sub *subscription) *messages.Data {
	data := &messages.Data{
		Samples: []schema.Sample{},
		Now:     time.Now().UnixMilli(),
	}
	for _, s := range p.window.All(sub.lastX) {
		if sub.wants(s) {
			data.Samples = append(data.Samples, s)
		}
	}
	return data
}

// Subscribe sends the retained history followed by every new sample the
// request selects. It returns when the callback fails or the plotter closes.
func (p *Plotter) Subscribe(
	req *SubscriptionRequest,
	callback func(data *messages.Data) error,
) error {
	sub := newSubscription(req)

	// subscribe before reading history so no sample falls between the two
	msgCh := p.broker.Subscribe()
	defer p.broker.Unsubscribe(msgCh)

	initial := p.getInitialData(sub)
	last := map[int]uint64{}
	for _, s := range initial.Samples {
		last[s.SeriesID] = s.X
	}

	if err := callback(initial); err != nil {
		return errors.Wrap(err, "callback error")
	}

	for msg := range msgCh {
		s, ok := msg.(schema.Sample)
		if !ok || !sub.wants(s) {
			continue
		}
		if x, seen := last[s.SeriesID]; seen && s.X <= x {
			continue
		}

		if err := callback(&messages.Data{Samples: []schema.Sample{s}}); err != nil {
			return errors.Wrap(err, "callback error")
		}
	}

	return nil
}
