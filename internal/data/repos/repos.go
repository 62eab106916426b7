package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/video-insight-backend/internal/data/repos/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

type InsightRecordRepo = insight.RecordRepo

var ErrDuplicateKey = insight.ErrDuplicateKey

func NewInsightRecordRepo(db *gorm.DB, baseLog *logger.Logger) InsightRecordRepo {
	return insight.NewRecordRepo(db, baseLog)
}
