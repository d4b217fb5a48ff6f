package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/instrument"
	"github.com/shandysiswandi/authpilot/internal/pkg/messaging"
	"go.opentelemetry.io/otel/codes"
)

// RunCompletedDestination receives one message per finished target run.
const RunCompletedDestination = "authpilot.run.completed"

const keyOfRunID string = "_rID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishRunCompleted(ctx context.Context, rec entity.RunRecord) error {
	ctx, span := m.ins.Tracer("authflow.outbound.mq").Start(ctx, "PublishRunCompleted")
	defer span.End()

	body, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, RunCompletedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(rec.Target),
		Headers: []messaging.Header{{Key: keyOfRunID, Value: []byte(rec.RunID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
