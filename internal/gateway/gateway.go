package gateway

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"org-dashboard/config"
	"org-dashboard/monitoring"

	"github.com/pocketbase/pocketbase/core"
)

// Gateway is the single data and storage client of the process. It is built
// once at startup and handed to every service.
type Gateway struct {
	App     core.App
	Config  *config.Config
	Bucket  Bucket
	Signer  *Signer
	Monitor *monitoring.Monitor
}

func New(app core.App, cfg *config.Config, bucket Bucket, signer *Signer, monitor *monitoring.Monitor) *Gateway {
	return &Gateway{
		App:     app,
		Config:  cfg,
		Bucket:  bucket,
		Signer:  signer,
		Monitor: monitor,
	}
}

// Pagination clamps a client page request using the configured defaults.
func (g *Gateway) Pagination(page, perPage int) Pagination {
	return NewPagination(page, perPage, g.Config.DefaultPageSize, g.Config.MaxPageSize)
}

// FindPage loads one page of records matching filter together with the total
// number of matches.
func (g *Gateway) FindPage(ctx context.Context, collection string, filter *Filter, p Pagination, orderBy ...string) ([]*core.Record, int, error) {
	started := time.Now()

	total, err := g.App.CountRecords(collection, filter.Exprs()...)
	if err != nil {
		g.Monitor.TrackGatewayOperation("count", collection, started, err)
		return nil, 0, err
	}

	query := g.App.RecordQuery(collection).WithContext(ctx)
	if expr := filter.Expr(); expr != nil {
		query = query.AndWhere(expr)
	}
	if len(orderBy) > 0 {
		query = query.OrderBy(orderBy...)
	}

	records := []*core.Record{}
	err = query.
		Limit(int64(p.PerPage)).
		Offset(int64(p.Offset())).
		All(&records)
	g.Monitor.TrackGatewayOperation("list", collection, started, err)
	if err != nil {
		return nil, 0, err
	}

	return records, int(total), nil
}

// FindAll loads every record matching filter.
func (g *Gateway) FindAll(ctx context.Context, collection string, filter *Filter, orderBy ...string) ([]*core.Record, error) {
	started := time.Now()

	query := g.App.RecordQuery(collection).WithContext(ctx)
	if expr := filter.Expr(); expr != nil {
		query = query.AndWhere(expr)
	}
	if len(orderBy) > 0 {
		query = query.OrderBy(orderBy...)
	}

	records := []*core.Record{}
	err := query.All(&records)
	g.Monitor.TrackGatewayOperation("list", collection, started, err)
	return records, err
}

// FindByID returns the record or an error matched by IsNotFound.
func (g *Gateway) FindByID(ctx context.Context, collection, id string) (*core.Record, error) {
	started := time.Now()

	record := &core.Record{}
	err := g.App.RecordQuery(collection).
		WithContext(ctx).
		AndWhere(Where().Eq("id", id).Expr()).
		Limit(1).
		One(record)
	g.Monitor.TrackGatewayOperation("get", collection, started, err)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Save inserts or updates record.
func (g *Gateway) Save(ctx context.Context, record *core.Record) error {
	started := time.Now()
	err := g.App.SaveWithContext(ctx, record)
	g.Monitor.TrackGatewayOperation("save", record.Collection().Name, started, err)
	return err
}

// Delete removes record.
func (g *Gateway) Delete(ctx context.Context, record *core.Record) error {
	started := time.Now()
	err := g.App.DeleteWithContext(ctx, record)
	g.Monitor.TrackGatewayOperation("delete", record.Collection().Name, started, err)
	return err
}

// RunInTransaction runs fn in a single database transaction.
func (g *Gateway) RunInTransaction(operation, collection string, fn func(txApp core.App) error) error {
	started := time.Now()
	err := g.App.RunInTransaction(fn)
	g.Monitor.TrackGatewayOperation(operation, collection, started, err)
	return err
}

// NewRecord returns an unsaved record of collection.
func (g *Gateway) NewRecord(collection string) (*core.Record, error) {
	col, err := g.App.FindCachedCollectionByNameOrId(collection)
	if err != nil {
		return nil, err
	}
	return core.NewRecord(col), nil
}

// IsNotFound reports whether err means the looked up row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
