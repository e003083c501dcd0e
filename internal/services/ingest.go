package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wellness-backend-go/internal/models"
	"wellness-backend-go/internal/normalize"
	"wellness-backend-go/internal/sources"
)

type IngestReport struct {
	ExternalID string
	UserID     string
	Source     string
	Samples    int
	Days       int
	First      time.Time
	Last       time.Time
}

type IngestService struct {
	Store  Repository
	Logger *zap.Logger
}

func NewIngestService(store Repository, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{Store: store, Logger: logger}
}

// IngestApple streams export.xml out of an Apple Health zip. A missing
// archive is logged and treated as an empty export, which then fails the
// run with a NoDataError.
func (s *IngestService) IngestApple(ctx context.Context, externalID, zipPath string) (IngestReport, error) {
	tables := models.SampleTables{}
	rc, err := sources.OpenAppleArchive(zipPath)
	switch {
	case err == nil:
		defer rc.Close()
		tables, err = sources.ReadAppleExport(rc)
		if err != nil {
			return IngestReport{ExternalID: externalID, Source: models.SourceApple}, WrapError(err, "read apple export")
		}
	case isMissingInput(err):
		s.Logger.Warn("apple archive missing", zap.String("path", zipPath))
	default:
		return IngestReport{ExternalID: externalID, Source: models.SourceApple}, err
	}
	return s.ingest(ctx, externalID, models.SourceApple, tables)
}

// IngestAppleXML reads an export.xml that was already extracted.
func (s *IngestService) IngestAppleXML(ctx context.Context, externalID, xmlPath string) (IngestReport, error) {
	tables, err := sources.ReadAppleFile(xmlPath)
	if err != nil {
		if !isMissingInput(err) {
			return IngestReport{ExternalID: externalID, Source: models.SourceApple}, WrapError(err, "read apple export")
		}
		s.Logger.Warn("apple export missing", zap.String("path", xmlPath))
		tables = models.SampleTables{}
	}
	return s.ingest(ctx, externalID, models.SourceApple, tables)
}

func (s *IngestService) IngestFitbit(ctx context.Context, externalID, dir string) (IngestReport, error) {
	tables := sources.ReadFitbitFolder(dir, s.Logger.With(zap.String("user", externalID)))
	return s.ingest(ctx, externalID, models.SourceFitbit, tables)
}

// ingest normalises tables before resolving the user so that an empty run
// never creates a user row.
func (s *IngestService) ingest(ctx context.Context, externalID, source string, tables models.SampleTables) (IngestReport, error) {
	report := IngestReport{ExternalID: externalID, Source: source, Samples: tables.Count()}
	catalog, ok := normalize.CatalogFor(source)
	if !ok {
		return report, fmt.Errorf("no metric catalog for source %q", source)
	}
	// The user id is filled in once resolved; Build only needs a placeholder.
	records, err := normalize.Build("", source, tables, catalog)
	if err != nil {
		var noData *normalize.NoDataError
		if errors.As(err, &noData) {
			noData.UserID = externalID
		}
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	userID, err := s.Store.FindOrCreateUser(ctx, externalID)
	if err != nil {
		return report, err
	}
	for i := range records {
		records[i].UserID = userID
	}
	if err := s.Store.UpsertDailyMetrics(ctx, records); err != nil {
		return report, WrapError(err, "upsert daily metrics")
	}

	report.UserID = userID
	report.Days = len(records)
	report.First = records[0].Date
	report.Last = records[len(records)-1].Date
	fields := []zap.Field{
		zap.String("user", externalID),
		zap.String("source", source),
		zap.Int("samples", report.Samples),
		zap.Int("days", report.Days),
		zap.String("first", report.First.Format("2006-01-02")),
		zap.String("last", report.Last.Format("2006-01-02")),
	}
	s.Logger.Info("ingested daily metrics", append(fields, CaptureProcessStats().Fields()...)...)
	return report, nil
}

func isMissingInput(err error) bool {
	var missing *sources.MissingInputError
	return errors.As(err, &missing)
}
