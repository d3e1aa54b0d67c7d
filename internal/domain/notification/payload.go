package notification

import (
	"hostelcare/internal/domain/complaint"
	"hostelcare/internal/domain/conversation"
)

const previewLength = 120

func buildPayload(ev *complaint.Event, r Recipient) Payload {
	c := ev.After
	p := Payload{
		ComplaintID: c.ID,
		Category:    c.Category,
		Priority:    string(c.Priority),
		Status:      string(c.Status),
		ActorName:   ev.Actor.Name,
	}

	if f, ok := ev.Fact(complaint.FactStatusChanged); ok {
		p.PreviousStatus = string(f.FromStatus)
	}

	switch r.Type {
	case TypeComplaintResolved:
		p.ResolverName = ev.Actor.Name
		if r.Selector == SelectWardens {
			p.ReporterName = c.ReporterName
		}
	case TypeComplaintCreated:
		p.ReporterName = c.ReporterName
	case TypeMessageReceived:
		if ev.Remark != nil {
			p.MessagePreview = conversation.Preview(ev.Remark.Text, previewLength)
		}
	}
	return p
}
