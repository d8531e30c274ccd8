package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholar-sweep/models"
)

// SweepStats fasst das Ergebnis eines vollständigen Dedup-Durchlaufs zusammen.
type SweepStats struct {
	PublicationsProcessed int `json:"publications_processed"`
	GroupingFailures      int `json:"grouping_failures"`
	GroupsMerged          int `json:"groups_merged"`
	MergeFailures         int `json:"merge_failures"`
}

// SweepService orchestriert den periodischen Dedup-Durchlauf: erst werden alle
// Publikationen gruppiert, dann jede Gruppe zusammengeführt. Der Durchlauf als
// Ganzes ist nicht atomar; jeder Einzelschritt läuft in seiner eigenen
// Transaktion, ein Abbruch lässt bereits verarbeitete Publikationen korrekt
// zurück.
type SweepService struct {
	DB            *gorm.DB
	Logger        *zap.Logger
	Grouper       *GroupingService
	Merger        *MergeService
	ProgressEvery int
}

// NewSweepService erstellt eine neue Instanz des SweepService.
func NewSweepService(db *gorm.DB, logger *zap.Logger, grouper *GroupingService, merger *MergeService, progressEvery int) *SweepService {
	return &SweepService{
		DB:            db,
		Logger:        logger,
		Grouper:       grouper,
		Merger:        merger,
		ProgressEvery: progressEvery,
	}
}

// Sweep führt beide Phasen aus. Fehler einzelner Publikationen oder Gruppen
// werden gezählt und geloggt, brechen den Durchlauf aber nicht ab.
func (s *SweepService) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	processed, failed, err := s.Grouper.GroupAll(s.ProgressEvery)
	if err != nil {
		return stats, err
	}
	stats.PublicationsProcessed = processed
	stats.GroupingFailures = failed

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	var groupIDs []uint
	if err := s.DB.Model(&models.DuplicateGroup{}).Order("id").Pluck("id", &groupIDs).Error; err != nil {
		return stats, err
	}

	for _, gid := range groupIDs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.Merger.MergeGroup(gid); err != nil {
			stats.MergeFailures++
			s.Logger.Error("Gruppen-Merge fehlgeschlagen, Sweep läuft weiter",
				zap.Uint("group_id", gid), zap.Error(err))
			continue
		}
		stats.GroupsMerged++
	}

	s.Logger.Info("Dedup-Sweep abgeschlossen",
		zap.Int("publications_processed", stats.PublicationsProcessed),
		zap.Int("grouping_failures", stats.GroupingFailures),
		zap.Int("groups_merged", stats.GroupsMerged),
		zap.Int("merge_failures", stats.MergeFailures))
	return stats, nil
}
