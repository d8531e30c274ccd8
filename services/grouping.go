package services

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholar-sweep/models"
)

// GroupingService pflegt die DuplicateGroups: es findet zu einer Publikation
// alle ähnlichen Publikationen und faltet sie (samt bereits bestehender
// Gruppen) in eine einzige überlebende Gruppe. Jede Operation läuft in genau
// einer Transaktion, damit ein Fehler keinen halb migrierten Gruppenzustand
// hinterlässt.
type GroupingService struct {
	DB      *gorm.DB
	Logger  *zap.Logger
	Matcher *SimilarityMatcher
}

// NewGroupingService erstellt eine neue Instanz des GroupingService.
func NewGroupingService(db *gorm.DB, logger *zap.Logger, matcher *SimilarityMatcher) *GroupingService {
	return &GroupingService{DB: db, Logger: logger, Matcher: matcher}
}

// GroupDuplicatesOf sucht alle zu pub ähnlichen Publikationen und überführt
// die Kandidatenmenge in eine gemeinsame DuplicateGroup. Bestehende Gruppen
// werden als Ganzes übernommen oder ausgelassen: enthält eine Gruppe einen
// Non-Duplicate-Partner eines bereits aufgenommenen Mitglieds, bleibt sie
// samt aller Mitglieder außen vor. So kann ein als verschieden markiertes
// Paar auch über das Falten fremder Gruppen nie wieder zusammenkommen.
func (g *GroupingService) GroupDuplicatesOf(pubID uint) error {
	return g.DB.Transaction(func(tx *gorm.DB) error {
		var pub models.Publication
		if err := tx.First(&pub, pubID).Error; err != nil {
			return fmt.Errorf("publikation %d laden: %w", pubID, err)
		}
		// Ausgeblendete Merge-Verlierer nehmen am Gruppieren nicht mehr teil
		if !pub.Visible {
			return nil
		}

		var all []models.Publication
		if err := tx.Where("id <> ? AND visible = ?", pub.ID, true).
			Order("id").Find(&all).Error; err != nil {
			return fmt.Errorf("kandidaten laden: %w", err)
		}

		var candidates []models.Publication
		for i := range all {
			if g.Matcher.Similar(&pub, &all[i]) {
				candidates = append(candidates, all[i])
			}
		}
		if len(candidates) == 0 {
			return nil
		}

		units, err := loadGroupUnits(tx, &pub, candidates)
		if err != nil {
			return err
		}
		conflicts, err := nonDuplicateConflicts(tx, unitMemberIDs(units))
		if err != nil {
			return err
		}

		// Einheiten in deterministischer Reihenfolge aufnehmen; pub selbst
		// (samt eigener Gruppe) ist immer gesetzt.
		accepted := append([]uint{}, units[0].members...)
		var groupIDs []uint
		if units[0].groupID != nil {
			groupIDs = append(groupIDs, *units[0].groupID)
		}
		for _, u := range units[1:] {
			if unitHasConflict(u, accepted, conflicts) {
				continue
			}
			accepted = append(accepted, u.members...)
			if u.groupID != nil {
				groupIDs = append(groupIDs, *u.groupID)
			}
		}
		if len(accepted) < 2 {
			return nil
		}

		// Überlebende Gruppe: kleinste übernommene Gruppen-ID, sonst neu.
		sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i] < groupIDs[j] })

		var survivor models.DuplicateGroup
		if len(groupIDs) > 0 {
			if err := tx.First(&survivor, groupIDs[0]).Error; err != nil {
				return fmt.Errorf("überlebende gruppe %d laden: %w", groupIDs[0], err)
			}
		} else {
			if err := tx.Create(&survivor).Error; err != nil {
				return fmt.Errorf("gruppe anlegen: %w", err)
			}
		}

		if err := tx.Model(&models.Publication{}).
			Where("id IN ?", accepted).
			Update("duplicate_group_id", survivor.ID).Error; err != nil {
			return fmt.Errorf("mitglieder umhängen: %w", err)
		}

		// Übernommene Gruppen sind jetzt leer und werden gelöscht.
		for _, gid := range groupIDs {
			if gid == survivor.ID {
				continue
			}
			if err := tx.Delete(&models.DuplicateGroup{}, gid).Error; err != nil {
				return fmt.Errorf("gruppe %d löschen: %w", gid, err)
			}
		}

		g.Logger.Debug("Publikation gruppiert",
			zap.Uint("publication_id", pub.ID),
			zap.Uint("group_id", survivor.ID),
			zap.Int("members", len(accepted)))
		return nil
	})
}

// groupUnit ist eine unteilbare Einheit beim Gruppieren: eine ganze
// bestehende DuplicateGroup oder eine einzelne ungruppierte Publikation.
type groupUnit struct {
	groupID *uint
	members []uint
}

// loadGroupUnits baut aus pub und den Kandidaten die Einheiten: Kandidaten
// derselben Gruppe bilden eine Einheit mit allen Gruppenmitgliedern, pub
// selbst steht an erster Stelle.
func loadGroupUnits(tx *gorm.DB, pub *models.Publication, candidates []models.Publication) ([]groupUnit, error) {
	gidSet := map[uint]bool{}
	if pub.DuplicateGroupID != nil {
		gidSet[*pub.DuplicateGroupID] = true
	}
	for i := range candidates {
		if candidates[i].DuplicateGroupID != nil {
			gidSet[*candidates[i].DuplicateGroupID] = true
		}
	}

	groupMembers := map[uint][]uint{}
	if len(gidSet) > 0 {
		gids := make([]uint, 0, len(gidSet))
		for gid := range gidSet {
			gids = append(gids, gid)
		}
		var pubs []models.Publication
		if err := tx.Where("duplicate_group_id IN ?", gids).
			Order("id").Find(&pubs).Error; err != nil {
			return nil, fmt.Errorf("gruppenmitglieder laden: %w", err)
		}
		for i := range pubs {
			gid := *pubs[i].DuplicateGroupID
			groupMembers[gid] = append(groupMembers[gid], pubs[i].ID)
		}
	}

	var units []groupUnit
	seen := map[uint]bool{}
	if pub.DuplicateGroupID != nil {
		gid := *pub.DuplicateGroupID
		seen[gid] = true
		units = append(units, groupUnit{groupID: &gid, members: groupMembers[gid]})
	} else {
		units = append(units, groupUnit{members: []uint{pub.ID}})
	}
	for i := range candidates {
		c := &candidates[i]
		if c.DuplicateGroupID == nil {
			units = append(units, groupUnit{members: []uint{c.ID}})
			continue
		}
		gid := *c.DuplicateGroupID
		if seen[gid] {
			continue
		}
		seen[gid] = true
		units = append(units, groupUnit{groupID: &gid, members: groupMembers[gid]})
	}
	return units, nil
}

func unitMemberIDs(units []groupUnit) []uint {
	var ids []uint
	for _, u := range units {
		ids = append(ids, u.members...)
	}
	return ids
}

// unitHasConflict prüft, ob irgendein Mitglied der Einheit mit einem bereits
// aufgenommenen Mitglied eine NonDuplicateGroup teilt.
func unitHasConflict(u groupUnit, accepted []uint, conflicts map[uint]map[uint]bool) bool {
	for _, m := range u.members {
		for _, a := range accepted {
			if conflicts[m][a] {
				return true
			}
		}
	}
	return false
}

// GroupAll ist der periodische Voll-Sweep: jede Publikation wird einzeln
// gruppiert. Fehler einzelner Publikationen werden gezählt und geloggt, der
// Sweep läuft weiter; bereits verarbeitete Publikationen bleiben korrekt
// gruppiert, auch wenn der Prozess mittendrin abbricht.
func (g *GroupingService) GroupAll(progressEvery int) (processed, failed int, err error) {
	var ids []uint
	if err := g.DB.Model(&models.Publication{}).
		Where("visible = ?", true).
		Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, 0, fmt.Errorf("publikations-ids laden: %w", err)
	}

	for _, id := range ids {
		if err := g.GroupDuplicatesOf(id); err != nil {
			failed++
			g.Logger.Error("Gruppierung fehlgeschlagen, Sweep läuft weiter",
				zap.Uint("publication_id", id), zap.Error(err))
		}
		processed++
		if progressEvery > 0 && processed%progressEvery == 0 {
			g.Logger.Info("Sweep-Fortschritt",
				zap.Int("processed", processed), zap.Int("total", len(ids)))
		}
	}
	return processed, failed, nil
}

// DeclareNonDuplicates legt eine NonDuplicateGroup über die genannten
// Publikationen an und entfernt sie aus einer eventuell gemeinsamen
// DuplicateGroup, damit der False-Positive-Match nicht erneut greift.
func (g *GroupingService) DeclareNonDuplicates(pubIDs []uint) (*models.NonDuplicateGroup, error) {
	if len(pubIDs) < 2 {
		return nil, fmt.Errorf("eine non-duplicate-group braucht mindestens zwei publikationen")
	}

	var group models.NonDuplicateGroup
	err := g.DB.Transaction(func(tx *gorm.DB) error {
		var pubs []models.Publication
		if err := tx.Find(&pubs, pubIDs).Error; err != nil {
			return err
		}
		if len(pubs) != len(pubIDs) {
			return fmt.Errorf("nicht alle publikationen gefunden (%d von %d)", len(pubs), len(pubIDs))
		}

		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		if err := tx.Model(&group).Association("Publications").Append(&pubs); err != nil {
			return err
		}

		// Aus gemeinsamen DuplicateGroups herauslösen
		byGroup := map[uint][]uint{}
		for i := range pubs {
			if pubs[i].DuplicateGroupID != nil {
				byGroup[*pubs[i].DuplicateGroupID] = append(byGroup[*pubs[i].DuplicateGroupID], pubs[i].ID)
			}
		}
		for gid, ids := range byGroup {
			if len(ids) < 2 {
				continue
			}
			// Erster bleibt, die übrigen verlassen die Gruppe.
			if err := tx.Model(&models.Publication{}).
				Where("id IN ?", ids[1:]).
				Update("duplicate_group_id", nil).Error; err != nil {
				return err
			}
			if err := pruneGroup(tx, gid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// pruneGroup löscht eine Gruppe, die auf höchstens ein Mitglied gefallen ist,
// und löst das letzte Mitglied aus der Gruppe.
func pruneGroup(tx *gorm.DB, groupID uint) error {
	var count int64
	if err := tx.Model(&models.Publication{}).
		Where("duplicate_group_id = ?", groupID).Count(&count).Error; err != nil {
		return err
	}
	if count > 1 {
		return nil
	}
	if err := tx.Model(&models.Publication{}).
		Where("duplicate_group_id = ?", groupID).
		Update("duplicate_group_id", nil).Error; err != nil {
		return err
	}
	return tx.Delete(&models.DuplicateGroup{}, groupID).Error
}

// nonDuplicateConflicts baut die paarweise Konfliktrelation über die genannten
// Publikationen: zwei IDs stehen in Konflikt, wenn sie eine NonDuplicateGroup
// teilen.
func nonDuplicateConflicts(tx *gorm.DB, ids []uint) (map[uint]map[uint]bool, error) {
	var rows []struct {
		NonDuplicateGroupID uint
		PublicationID       uint
	}
	if err := tx.Table("non_duplicate_group_memberships").
		Where("publication_id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("non-duplicate-mitgliedschaften laden: %w", err)
	}

	byGroup := map[uint][]uint{}
	for _, r := range rows {
		byGroup[r.NonDuplicateGroupID] = append(byGroup[r.NonDuplicateGroupID], r.PublicationID)
	}
	conflicts := map[uint]map[uint]bool{}
	for _, members := range byGroup {
		for _, a := range members {
			for _, b := range members {
				if a == b {
					continue
				}
				if conflicts[a] == nil {
					conflicts[a] = map[uint]bool{}
				}
				conflicts[a][b] = true
			}
		}
	}
	return conflicts, nil
}
