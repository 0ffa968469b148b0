package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"projectflow/models"
)

// Store is the consistency layer over the relational database
type Store struct {
	db    *gorm.DB
	audit AuditWriter
	now   func() time.Time
}

type Option func(*Store)

// WithClock replaces the time source used for stamping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithAuditWriter replaces the activity log sink.
func WithAuditWriter(w AuditWriter) Option {
	return func(s *Store) { s.audit = w }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	s.audit = &dbAuditWriter{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying connection for administrative use.
func (s *Store) DB() *gorm.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return translate("ping", "", err)
	}
	return translate("ping", "", sqlDB.PingContext(ctx))
}

func (s *Store) read(ctx context.Context, kind models.EntityKind, opts ReadOptions) *gorm.DB {
	return Visible(s.db.WithContext(ctx).Model(kinds[kind].newRow()), kind, opts)
}

// load fetches one record of the given kind into dst.
func (s *Store) load(ctx context.Context, op string, dst models.Entity, id uuid.UUID, opts ReadOptions, preload ...func(*gorm.DB) *gorm.DB) error {
	kind := dst.EntityKind()
	q := Visible(s.db.WithContext(ctx), kind, opts)
	for _, p := range preload {
		q = p(q)
	}
	return translate(op, kind, q.First(dst, kinds[kind].table+".id = ?", id).Error)
}

// deleteByID runs a single delete through the pipeline.
func (s *Store) deleteByID(ctx context.Context, actor uuid.UUID, kind models.EntityKind, id uuid.UUID) error {
	info, err := infoFor(kind)
	if err != nil {
		return err
	}
	row := info.newRow()
	models.BaseOf(row).ID = id
	return s.Begin(&actor).Delete(row).Commit(ctx)
}

// preloadVisible preloads an association with the child's visibility filter applied.
func preloadVisible(assoc string, kind models.EntityKind, opts ReadOptions, order ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(assoc, func(q *gorm.DB) *gorm.DB {
			q = Visible(q, kind, opts)
			for _, o := range order {
				q = q.Order(o)
			}
			return q
		})
	}
}

func persist(tx *gorm.DB, op Op, e models.Entity) error {
	q := tx.Omit(clause.Associations)
	switch op {
	case OpCreate:
		return q.Create(e).Error
	default:
		return q.Save(e).Error
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
