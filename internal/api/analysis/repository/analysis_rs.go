package analysisRepository

import (
	"SlideScope/internal/entity"
	contextPkg "SlideScope/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type AnalysisRecordDB struct {
	ID              sql.NullString `db:"id"`
	Source          sql.NullString `db:"source"`
	SourceKey       sql.NullString `db:"source_key"`
	ImageWidth      sql.NullInt64  `db:"image_width"`
	ImageHeight     sql.NullInt64  `db:"image_height"`
	Method          sql.NullString `db:"method"`
	WindowSize      sql.NullString `db:"window_size"`
	OriginalFormat  sql.NullString `db:"original_format"`
	TotalDetections sql.NullInt64  `db:"total_detections"`
	DurationMs      sql.NullInt64  `db:"duration_ms"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r *analysisRepository) CreateAnalysis(c context.Context, record entity.AnalysisRecord) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":               record.ID,
		"source":           record.Source,
		"source_key":       record.SourceKey,
		"image_width":      record.ImageWidth,
		"image_height":     record.ImageHeight,
		"method":           record.Method,
		"window_size":      record.WindowSize,
		"original_format":  record.OriginalFormat,
		"total_detections": record.TotalDetections,
		"duration_ms":      record.DurationMs,
		"created_at":       time.Now(),
	}

	query, args, err := sqlx.Named(queryCreateAnalysis, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateAnalysis")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating analysis record")
		return err
	}

	return nil
}

func (r *analysisRepository) GetAnalysisByID(c context.Context, id string) (entity.AnalysisRecord, error) {
	requestID := contextPkg.GetRequestID(c)

	var row AnalysisRecordDB
	if err := r.q.QueryRowxContext(c, r.q.Rebind(queryGetAnalysisByID), id).StructScan(&row); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Database error when fetching analysis record")
		}
		return entity.AnalysisRecord{}, err
	}

	return row.toEntity(), nil
}

func (r *analysisRepository) GetRecentAnalyses(c context.Context, limit int) ([]entity.AnalysisRecord, error) {
	requestID := contextPkg.GetRequestID(c)

	var rows []AnalysisRecordDB
	if err := r.q.SelectContext(c, &rows, r.q.Rebind(queryGetRecentAnalyses), limit); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when listing analysis records")
		return nil, err
	}

	records := make([]entity.AnalysisRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toEntity())
	}
	return records, nil
}

func (row AnalysisRecordDB) toEntity() entity.AnalysisRecord {
	return entity.AnalysisRecord{
		ID:              row.ID.String,
		Source:          row.Source.String,
		SourceKey:       row.SourceKey.String,
		ImageWidth:      int(row.ImageWidth.Int64),
		ImageHeight:     int(row.ImageHeight.Int64),
		Method:          row.Method.String,
		WindowSize:      row.WindowSize.String,
		OriginalFormat:  row.OriginalFormat.String,
		TotalDetections: int(row.TotalDetections.Int64),
		DurationMs:      row.DurationMs.Int64,
		CreatedAt:       row.CreatedAt,
	}
}
