package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/rs/zerolog/log"
)

// SqsBackend is a long-polling pull transport. A nack without requeue
// deletes the message; wiring a dead-letter queue via the redrive policy is
// the operator's concern, the worker has already recorded the failure on the
// Job row by the time it dead-letters.
type SqsBackend struct {
	svc      *sqs.SQS
	queueURL string
}

func NewSqsBackend(sess *session.Session, queueURL string) *SqsBackend {
	return &SqsBackend{
		svc:      sqs.New(sess),
		queueURL: queueURL,
	}
}

func (b *SqsBackend) Publish(ctx context.Context, body []byte) error {
	_, err := b.svc.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(b.queueURL),
		MessageBody: aws.String(string(body)),
	})
	return err
}

func (b *SqsBackend) Consume(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}

			res, err := b.svc.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
				QueueUrl:            aws.String(b.queueURL),
				MaxNumberOfMessages: aws.Int64(1),
				WaitTimeSeconds:     aws.Int64(20),
			})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("receive failed, continuing to poll")
				continue
			}

			for _, msg := range res.Messages {
				select {
				case out <- Delivery{Body: []byte(aws.StringValue(msg.Body)), tag: aws.StringValue(msg.ReceiptHandle)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *SqsBackend) Ack(d Delivery) error {
	handle, ok := d.tag.(string)
	if !ok {
		return fmt.Errorf("delivery token is not an SQS receipt handle")
	}
	_, err := b.svc.DeleteMessage(&sqs.DeleteMessageInput{
		QueueUrl:      aws.String(b.queueURL),
		ReceiptHandle: aws.String(handle),
	})
	return err
}

func (b *SqsBackend) Nack(d Delivery, requeue bool) error {
	handle, ok := d.tag.(string)
	if !ok {
		return fmt.Errorf("delivery token is not an SQS receipt handle")
	}

	if requeue {
		_, err := b.svc.ChangeMessageVisibility(&sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(b.queueURL),
			ReceiptHandle:     aws.String(handle),
			VisibilityTimeout: aws.Int64(0),
		})
		return err
	}

	_, err := b.svc.DeleteMessage(&sqs.DeleteMessageInput{
		QueueUrl:      aws.String(b.queueURL),
		ReceiptHandle: aws.String(handle),
	})
	return err
}

func (b *SqsBackend) Close() error {
	return nil
}
