package mongo

import (
	"context"
	"errors"
	"fmt"
	apperrors "medsched/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const transientTransactionLabel = "TransientTransactionError"

// TransactionFunc is the unit of work for a calendar write: the overlap check
// and the insert or update it guards.
type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// transactionOptions reads from a snapshot on the primary so an overlap check
// and its write see the same calendar, and commits with majority so a booked
// slot survives failover.
func transactionOptions() *options.TransactionOptions {
	return options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
}

// ExecuteTransaction runs fn inside a multi-document transaction. AppErrors
// returned by fn come back unwrapped so callers can map them directly.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}, transactionOptions())
	return transactionError(err)
}

// transactionError maps what WithTransaction gave up on. A write conflict that
// outlived the driver's retries means two writers raced on the same
// practitioner's calendar.
func transactionError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return apperrors.AsAppError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("Calendar update timed out")
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(transientTransactionLabel) {
		return apperrors.Conflict("The calendar was changed by another request, please retry")
	}
	return fmt.Errorf("transaction failed: %w", err)
}
