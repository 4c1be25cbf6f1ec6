package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

const collectionAudit = "audit"

type auditDocument struct {
	Date      time.Time         `bson:"date"`
	User      string            `bson:"user"`
	Action    string            `bson:"action"`
	Data      map[string]string `bson:"data,omitempty"`
	Error     bool              `bson:"error"`
	Exception string            `bson:"exception,omitempty"`
}

// AuditRepository appends audit events. Events are never updated.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAudit)}
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, auditDocument{
		Date:      e.Date.UTC(),
		User:      e.User,
		Action:    e.Action,
		Data:      e.Data,
		Error:     e.Error,
		Exception: e.Exception,
	})
	if err != nil {
		return storageErr("insert audit event", err)
	}
	return nil
}

func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}}},
	})
	return err
}
