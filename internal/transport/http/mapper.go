package http

import (
	"github.com/samber/lo"

	"github.com/vovakirdan/wirehook/internal/envelope"
	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/service/query"
	"github.com/vovakirdan/wirehook/internal/store"
)

func messageToProto(m store.Message, _ int) proto.Message {
	return proto.Message{
		MessageID:  m.ID,
		FromMSISDN: m.FromAddress,
		ToMSISDN:   m.ToAddress,
		TS:         m.Timestamp,
		Text:       m.Text,
		CreatedAt:  store.FormatCreatedAt(m.CreatedAt),
	}
}

func pageToProto(page query.Page) proto.MessageList {
	return proto.MessageList{
		Data:   lo.Map(page.Data, messageToProto),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}

func statsToProto(s store.Stats) proto.Stats {
	return proto.Stats{
		TotalMessages: s.TotalMessages,
		SendersCount:  s.SendersCount,
		MessagesPerSender: lo.Map(s.MessagesPerSender, func(sc store.SenderCount, _ int) proto.SenderCount {
			return proto.SenderCount{FromMSISDN: sc.FromAddress, Count: sc.Count}
		}),
		FirstMessageTS:      s.FirstMessageTS,
		LastMessageTS:       s.LastMessageTS,
		RecipientsCount:     s.RecipientsCount,
		MessagesWithText:    s.MessagesWithText,
		MessagesWithoutText: s.MessagesWithoutText,
	}
}

func fieldErrorsToProto(verr *envelope.ValidationError) []proto.FieldError {
	return lo.Map(verr.Errors, func(fe envelope.FieldError, _ int) proto.FieldError {
		return proto.FieldError{Field: fe.Field, Reason: fe.Reason}
	})
}
