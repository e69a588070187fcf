package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/filegpt/filegpt/internal/model"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

var fileColumns = []string{"id", "file_name", "file_url", "vector_index", "is_processed", "processed_data", "ctime", "mtime"}

type FileRepo struct {
	db *sqlx.DB
}

func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, f *model.File) error {
	data := map[string]interface{}{
		"id":             f.ID,
		"file_name":      f.FileName,
		"file_url":       f.FileURL,
		"vector_index":   f.VectorIndex,
		"is_processed":   f.IsProcessed,
		"processed_data": f.ProcessedData,
		"ctime":          f.Ctime,
		"mtime":          f.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("files", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*model.File, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("files", where, fileColumns)
	if err != nil {
		return nil, err
	}
	var f model.File
	if err := r.db.GetContext(ctx, &f, r.db.Rebind(sqlStr), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListByIDs returns the records that exist for the given ids, in the order
// the ids were given. Missing ids are silently dropped.
func (r *FileRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	where := map[string]interface{}{"id in": ids}
	sqlStr, args, err := builder.BuildSelect("files", where, fileColumns)
	if err != nil {
		return nil, err
	}
	var rows []*model.File
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	byID := make(map[string]*model.File, len(rows))
	for _, f := range rows {
		byID[f.ID] = f
	}
	result := make([]*model.File, 0, len(rows))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *FileRepo) List(ctx context.Context) ([]*model.File, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("files", where, fileColumns)
	if err != nil {
		return nil, err
	}
	var rows []*model.File
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *FileRepo) ListUnprocessed(ctx context.Context, limit int) ([]*model.File, error) {
	where := map[string]interface{}{
		"is_processed": false,
		"_orderby":     "ctime asc",
		"_limit":       []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("files", where, fileColumns)
	if err != nil {
		return nil, err
	}
	var rows []*model.File
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *FileRepo) UpdateName(ctx context.Context, id, newName string, mtime int64) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"file_name": newName,
		"mtime":     mtime,
	}
	return r.update(ctx, where, update)
}

func (r *FileRepo) MarkProcessed(ctx context.Context, id string, mtime int64) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"is_processed": true,
		"mtime":        mtime,
	}
	return r.update(ctx, where, update)
}

func (r *FileRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildDelete("files", where)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *FileRepo) update(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("files", where, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
