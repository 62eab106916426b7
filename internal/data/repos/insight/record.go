package insight

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/dbctx"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

// ErrDuplicateKey is returned by Create when a record for the video key already exists.
var ErrDuplicateKey = errors.New("insight record already exists for video key")

type RecordRepo interface {
	GetByVideoKey(dbc dbctx.Context, videoKey string) (*types.Record, error)
	Create(dbc dbctx.Context, rec *types.Record) (*types.Record, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{
		db:  db,
		log: baseLog.With("repo", "InsightRecordRepo"),
	}
}

// GetByVideoKey returns (nil, nil) when no record exists.
func (r *recordRepo) GetByVideoKey(dbc dbctx.Context, videoKey string) (*types.Record, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if strings.TrimSpace(videoKey) == "" {
		return nil, nil
	}
	var rec types.Record
	err := transaction.WithContext(dbc.Ctx).
		Where("video_key = ?", videoKey).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *recordRepo) Create(dbc dbctx.Context, rec *types.Record) (*types.Record, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil {
		return nil, errors.New("nil insight record")
	}
	if err := transaction.WithContext(dbc.Ctx).Create(rec).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Debug("Duplicate insight record", "video_key", rec.VideoKey)
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return rec, nil
}

// UpdateFields overwrites the given columns and refreshes updated_at.
// It returns gorm.ErrRecordNotFound when no row has the id.
func (r *recordRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields["updated_at"] = time.Now().UTC()

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Record{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *recordRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Record{}).Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.TrimSpace(pgErr.Code) == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint failed")
}
