package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholar-sweep/config"
	"scholar-sweep/importers"
	"scholar-sweep/models"
	"scholar-sweep/storage"
)

// ImportStats fasst das Ergebnis eines Importer-Laufs zusammen.
type ImportStats struct {
	Source        string               `json:"source"`
	Created       int                  `json:"created"`
	Updated       int                  `json:"updated"`
	SkippedLocked int                  `json:"skipped_locked"`
	Failed        int                  `json:"failed"`
	RowErrors     []importers.RowError `json:"row_errors,omitempty"`
}

// ImporterSource verbindet einen Importer mit dem Pfad seiner Export-Datei.
type ImporterSource struct {
	Importer importers.Importer
	Path     string
}

// ImportService ist der Import-Funnel: er liest die Export-Dateien der
// Quellen, legt Publikationen samt Herkunftsnachweis an bzw. aktualisiert sie
// und stößt für neue Publikationen die Duplikat-Gruppierung an. Von Menschen
// bearbeitete Datensätze werden nie überschrieben.
type ImportService struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *zap.Logger
	Grouper  *GroupingService
	S3Client *s3.Client
}

// NewImportService erstellt eine neue Instanz des ImportService.
func NewImportService(cfg *config.Config, db *gorm.DB, logger *zap.Logger, grouper *GroupingService, s3Client *s3.Client) *ImportService {
	return &ImportService{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Grouper:  grouper,
		S3Client: s3Client,
	}
}

// RunAll führt alle konfigurierten Importer nacheinander aus. Fehler eines
// Importers stoppen die übrigen nicht.
func (s *ImportService) RunAll(ctx context.Context, sources []ImporterSource) []ImportStats {
	var all []ImportStats
	for _, src := range sources {
		stats, err := s.Run(ctx, src.Importer, src.Path)
		if err != nil {
			s.Logger.Error("Importer-Lauf fehlgeschlagen",
				zap.String("source", src.Importer.Name()), zap.Error(err))
			stats.Source = src.Importer.Name()
		}
		all = append(all, stats)
	}
	return all
}

// Run führt einen einzelnen Importer aus. Fehlende oder leere Export-Dateien
// sind fatale Pre-Flight-Fehler; Zeilenfehler werden gesammelt und
// übersprungen.
func (s *ImportService) Run(ctx context.Context, imp importers.Importer, path string) (ImportStats, error) {
	stats := ImportStats{Source: imp.Name()}
	log := s.Logger.With(zap.String("source", imp.Name()), zap.String("path", path))

	reader, err := s.openExport(ctx, path)
	if err != nil {
		return stats, err
	}
	defer reader.Close()

	rows, rowErrs, err := imp.Rows(reader)
	if err != nil {
		return stats, fmt.Errorf("export parsen: %w", err)
	}
	stats.RowErrors = rowErrs
	stats.Failed = len(rowErrs)

	chunkSize := s.Config.ImportChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}

	log.Info("Starte Import", zap.Int("rows", len(rows)), zap.Int("chunk_size", chunkSize))

	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var newIDs []uint
		var chunkCreated, chunkUpdated, chunkSkipped int
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			for i := range chunk {
				created, skipped, err := s.processRow(tx, imp.Name(), &chunk[i])
				if err != nil {
					return fmt.Errorf("zeile %s: %w", chunk[i].SourceIdentifier, err)
				}
				switch {
				case skipped:
					chunkSkipped++
				case created != 0:
					chunkCreated++
					newIDs = append(newIDs, created)
				default:
					chunkUpdated++
				}
			}
			return nil
		})
		if err != nil {
			// Chunk-Rollback: alle Zeilen des Chunks als fehlgeschlagen verbuchen,
			// der Import läuft mit dem nächsten Chunk weiter.
			for i := range chunk {
				stats.Failed++
				stats.RowErrors = append(stats.RowErrors, importers.RowError{
					SourceIdentifier: chunk[i].SourceIdentifier,
					Reason:           err.Error(),
				})
			}
			log.Error("Chunk zurückgerollt", zap.Int("chunk_start", start), zap.Error(err))
			continue
		}
		stats.Created += chunkCreated
		stats.Updated += chunkUpdated
		stats.SkippedLocked += chunkSkipped

		// Gruppierung nur für neu angelegte Publikationen; der Voll-Sweep
		// übernimmt den Rest periodisch.
		for _, id := range newIDs {
			if err := s.Grouper.GroupDuplicatesOf(id); err != nil {
				log.Error("Gruppierung nach Import fehlgeschlagen",
					zap.Uint("publication_id", id), zap.Error(err))
			}
		}
	}

	log.Info("Import abgeschlossen",
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped_locked", stats.SkippedLocked),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// processRow legt eine Publikation samt Import-Ledger an oder aktualisiert
// den bestehenden Datensatz. Rückgabe: ID bei Neuanlage, skipped bei
// Überschreibsperre.
func (s *ImportService) processRow(tx *gorm.DB, source string, row *importers.Row) (created uint, skipped bool, err error) {
	var existing models.PublicationImport
	err = tx.Where("source = ? AND source_identifier = ?", source, row.SourceIdentifier).
		First(&existing).Error

	if err == nil {
		var pub models.Publication
		if err := tx.First(&pub, existing.PublicationID).Error; err != nil {
			return 0, false, fmt.Errorf("publikation %d laden: %w", existing.PublicationID, err)
		}
		if pub.EditedByUser() {
			return 0, true, nil
		}
		applyRow(&pub, row)
		if err := tx.Save(&pub).Error; err != nil {
			return 0, false, err
		}
		if err := replaceContributors(tx, pub.ID, source, row.Contributors); err != nil {
			return 0, false, err
		}
		existing.RawRecord = []byte(row.Raw)
		return 0, false, tx.Save(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	pub := models.Publication{Visible: true}
	applyRow(&pub, row)
	if err := tx.Create(&pub).Error; err != nil {
		return 0, false, err
	}

	imp := models.PublicationImport{
		PublicationID:    pub.ID,
		Source:           source,
		SourceIdentifier: row.SourceIdentifier,
		RawRecord:        []byte(row.Raw),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "source_identifier"}},
		DoNothing: true,
	}).Create(&imp).Error; err != nil {
		return 0, false, err
	}

	if err := replaceContributors(tx, pub.ID, source, row.Contributors); err != nil {
		return 0, false, err
	}
	return pub.ID, false, nil
}

// applyRow überträgt die Quellfelder auf die Publikation.
func applyRow(pub *models.Publication, row *importers.Row) {
	pub.Title = row.Title
	pub.SecondaryTitle = row.SecondaryTitle
	pub.JournalTitle = row.JournalTitle
	pub.PublisherName = row.PublisherName
	pub.PublishedOn = row.PublishedOn
	pub.Status = row.Status
	pub.Volume = row.Volume
	pub.Issue = row.Issue
	pub.Edition = row.Edition
	pub.PageRange = row.PageRange
	pub.ISSN = row.ISSN
	pub.ISBN = row.ISBN
	pub.DOI = row.DOI
	pub.URL = row.URL
	pub.Abstract = row.Abstract
	pub.PublicationType = row.PublicationType
	pub.AuthorsEtAl = row.AuthorsEtAl
	if row.TotalScopusCitations > 0 {
		pub.TotalScopusCitations = row.TotalScopusCitations
	}
}

// replaceContributors ersetzt die Autorenliste einer Publikation durch die der
// aktuellen Quelle.
func replaceContributors(tx *gorm.DB, pubID uint, source string, contributors []importers.Contributor) error {
	if err := tx.Where("publication_id = ?", pubID).Delete(&models.ContributorName{}).Error; err != nil {
		return err
	}
	for _, c := range contributors {
		name := models.ContributorName{
			PublicationID: pubID,
			FirstName:     c.FirstName,
			MiddleName:    c.MiddleName,
			LastName:      c.LastName,
			Position:      c.Position,
			Role:          c.Role,
			Source:        source,
		}
		if err := tx.Create(&name).Error; err != nil {
			return err
		}
	}
	return nil
}

// openExport öffnet einen lokalen Pfad oder lädt ein s3://-Objekt herunter.
// Fehlende oder leere Dateien sind fatal (Pre-Flight).
func (s *ImportService) openExport(ctx context.Context, path string) (io.ReadCloser, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kein export-pfad konfiguriert")
	}

	if bucket, key, ok := storage.ParseS3Path(path); ok {
		if s.S3Client == nil {
			return nil, fmt.Errorf("s3-pfad %s konfiguriert, aber kein s3-client vorhanden", path)
		}
		ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		data, err := storage.DownloadFile(ctx, s.S3Client, bucket, key)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("export-datei %s ist leer", path)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("export-datei %s fehlt: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("export-datei %s ist leer", path)
	}
	return os.Open(path)
}
