package services

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholar-sweep/models"
)

// MergeMode unterscheidet, auf welcher Grundlage zwei Publikationen als
// Duplikate erkannt wurden. Die Attribut-Regeln sind fast identisch, nur das
// Erscheinungsdatum wird je Modus unterschiedlich aufgelöst.
type MergeMode int

const (
	// MatchFuzzy: Duplikat per Trigram-Ähnlichkeit bzw. Gruppenzugehörigkeit.
	MatchFuzzy MergeMode = iota
	// MatchDOI: Duplikat per strenger DOI-Match-Policy.
	MatchDOI
)

// MergeService konsolidiert die Mitglieder einer DuplicateGroup in einen
// einzigen kanonischen Datensatz. Verlierer werden nie gelöscht, sondern
// unsichtbar geschaltet; ihre Imports und Kind-Datensätze wandern zum
// Überlebenden.
type MergeService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewMergeService erstellt eine neue Instanz des MergeService.
func NewMergeService(db *gorm.DB, logger *zap.Logger) *MergeService {
	return &MergeService{DB: db, Logger: logger}
}

// MergeGroup führt alle Mitglieder der Gruppe zusammen. Enthält die Gruppe
// genau einen von Menschen bearbeiteten Datensatz, wird in diesen hinein
// gemerged, ohne seine Attribute anzufassen; enthält sie mehrere, wird die
// Gruppe übersprungen und zur manuellen Prüfung geloggt.
func (m *MergeService) MergeGroup(groupID uint) error {
	return m.DB.Transaction(func(tx *gorm.DB) error {
		var members []models.Publication
		if err := tx.Where("duplicate_group_id = ?", groupID).Order("id").Find(&members).Error; err != nil {
			return fmt.Errorf("gruppenmitglieder laden: %w", err)
		}
		if len(members) < 2 {
			return pruneGroup(tx, groupID)
		}

		var edited []int
		for i := range members {
			if members[i].EditedByUser() {
				edited = append(edited, i)
			}
		}
		if len(edited) > 1 {
			m.Logger.Warn("Gruppe mit mehreren manuell bearbeiteten Datensätzen, Merge übersprungen",
				zap.Uint("group_id", groupID), zap.Int("edited", len(edited)))
			return nil
		}

		mode := MatchFuzzy
		if allPairsDOIMatch(members) {
			mode = MatchDOI
		}

		survivorIdx := 0
		if len(edited) == 1 {
			survivorIdx = edited[0]
		}
		survivor := &members[survivorIdx]

		sources, err := importSources(tx, members)
		if err != nil {
			return err
		}

		// Attribute paarweise von links nach rechts in den Überlebenden falten.
		// Ein manuell bearbeiteter Überlebender behält seine Attribute komplett.
		if len(edited) == 0 {
			for i := range members {
				if i == survivorIdx {
					continue
				}
				MergeAttributes(survivor, &members[i], mode, sources[survivor.ID], sources[members[i].ID])
			}
		}

		memberIDs := make([]uint, 0, len(members))
		loserIDs := make([]uint, 0, len(members)-1)
		for i := range members {
			memberIDs = append(memberIDs, members[i].ID)
			if i != survivorIdx {
				loserIDs = append(loserIDs, members[i].ID)
			}
		}

		if err := m.mergeChildren(tx, survivor, memberIDs); err != nil {
			return err
		}

		// Herkunftsnachweise zum Überlebenden umhängen
		if err := tx.Model(&models.PublicationImport{}).
			Where("publication_id IN ?", loserIDs).
			Update("publication_id", survivor.ID).Error; err != nil {
			return fmt.Errorf("imports umhängen: %w", err)
		}

		// DOI-Verifikation konsolidieren
		verified := make([]*bool, 0, len(members))
		for i := range members {
			verified = append(verified, members[i].DOIVerified)
		}
		survivor.DOIVerified = DoiVerificationMergePolicy(verified)

		// Verlierer ausblenden und aus der Gruppe lösen
		if err := tx.Model(&models.Publication{}).
			Where("id IN ?", loserIDs).
			Updates(map[string]interface{}{"visible": false, "duplicate_group_id": nil}).Error; err != nil {
			return fmt.Errorf("verlierer ausblenden: %w", err)
		}

		survivor.Visible = true
		survivor.DuplicateGroupID = nil
		if err := tx.Save(survivor).Error; err != nil {
			return fmt.Errorf("überlebenden speichern: %w", err)
		}

		if err := tx.Delete(&models.DuplicateGroup{}, groupID).Error; err != nil {
			return fmt.Errorf("gruppe %d löschen: %w", groupID, err)
		}

		m.Logger.Info("Duplikatgruppe zusammengeführt",
			zap.Uint("group_id", groupID),
			zap.Uint("survivor_id", survivor.ID),
			zap.Int("absorbed", len(loserIDs)),
			zap.Bool("doi_match", mode == MatchDOI))
		return nil
	})
}

// mergeChildren faltet ContributorNames, Authorships und OpenAccessLocations
// aller Mitglieder in den Überlebenden.
func (m *MergeService) mergeChildren(tx *gorm.DB, survivor *models.Publication, memberIDs []uint) error {
	var names []models.ContributorName
	if err := tx.Where("publication_id IN ?", memberIDs).
		Order("publication_id, position").Find(&names).Error; err != nil {
		return fmt.Errorf("contributor names laden: %w", err)
	}
	merged := ContributorNameMergePolicy(names)
	if err := tx.Where("publication_id IN ?", memberIDs).
		Delete(&models.ContributorName{}).Error; err != nil {
		return fmt.Errorf("contributor names löschen: %w", err)
	}
	for i := range merged {
		merged[i].ID = 0
		merged[i].PublicationID = survivor.ID
	}
	if len(merged) > 0 {
		if err := tx.Create(&merged).Error; err != nil {
			return fmt.Errorf("contributor names schreiben: %w", err)
		}
	}

	var auths []models.Authorship
	if err := tx.Where("publication_id IN ?", memberIDs).Order("id").Find(&auths).Error; err != nil {
		return fmt.Errorf("authorships laden: %w", err)
	}
	byUser := map[uint][]models.Authorship{}
	userOrder := []uint{}
	for _, a := range auths {
		if _, ok := byUser[a.UserID]; !ok {
			userOrder = append(userOrder, a.UserID)
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}
	if err := tx.Where("publication_id IN ?", memberIDs).Delete(&models.Authorship{}).Error; err != nil {
		return fmt.Errorf("authorships löschen: %w", err)
	}
	for _, uid := range userOrder {
		a := AuthorshipMergePolicy(byUser[uid])
		a.ID = 0
		a.PublicationID = survivor.ID
		if err := tx.Create(&a).Error; err != nil {
			return fmt.Errorf("authorship schreiben: %w", err)
		}
	}

	// Fundorte wie die Autorenlisten komplett ersetzen: alle Mitgliederzeilen
	// löschen und die deduplizierte Menge unter dem Überlebenden neu anlegen.
	var locs []models.OpenAccessLocation
	if err := tx.Where("publication_id IN ?", memberIDs).Order("id").Find(&locs).Error; err != nil {
		return fmt.Errorf("open access locations laden: %w", err)
	}
	kept := OpenAccessLocationMergePolicy(locs)
	if err := tx.Where("publication_id IN ?", memberIDs).Delete(&models.OpenAccessLocation{}).Error; err != nil {
		return fmt.Errorf("open access locations löschen: %w", err)
	}
	for i := range kept {
		loc := kept[i]
		loc.ID = 0
		loc.PublicationID = survivor.ID
		if err := tx.Create(&loc).Error; err != nil {
			return fmt.Errorf("open access location schreiben: %w", err)
		}
	}
	return nil
}

// MergeAttributes faltet die Attribute von src in dst, nach den
// dokumentierten Feldregeln. Gleichwertige Kandidaten werden deterministisch
// von links (dst) bevorzugt.
func MergeAttributes(dst, src *models.Publication, mode MergeMode, dstSources, srcSources map[string]bool) {
	dstPure, srcPure := dstSources[models.SourcePure], srcSources[models.SourcePure]

	dst.Title = mergedTitle(dst, src, dstPure, srcPure)
	dst.SecondaryTitle = mergedSecondaryTitle(dst, src, dstPure, srcPure)

	if dst.JournalID == nil {
		dst.JournalID = src.JournalID
	}
	dst.JournalTitle = firstNonEmpty(dst.JournalTitle, src.JournalTitle)
	dst.PublisherName = firstNonEmpty(dst.PublisherName, src.PublisherName)

	if dst.Status == models.StatusPublished || src.Status == models.StatusPublished {
		dst.Status = models.StatusPublished
	} else {
		dst.Status = firstNonEmpty(dst.Status, src.Status)
	}

	dst.Volume = firstNonEmpty(dst.Volume, src.Volume)
	dst.Issue = firstNonEmpty(dst.Issue, src.Issue)
	dst.Edition = firstNonEmpty(dst.Edition, src.Edition)

	dst.PageRange = longerValue(dst.PageRange, src.PageRange)
	dst.Abstract = longerValue(dst.Abstract, src.Abstract)
	dst.ISSN = NormalizeISSN(longerValue(dst.ISSN, src.ISSN))
	dst.PublicationType = mergedPublicationType(dst.PublicationType, src.PublicationType)

	dst.AuthorsEtAl = dst.AuthorsEtAl || src.AuthorsEtAl

	if dst.HasBlankDOI() {
		dst.DOI = strings.TrimSpace(src.DOI)
	}

	if dst.TotalScopusCitations == 0 {
		dst.TotalScopusCitations = src.TotalScopusCitations
	}
	dst.URL = firstNonEmpty(dst.URL, src.URL)
	dst.ISBN = firstNonEmpty(dst.ISBN, src.ISBN)

	dst.PublishedOn = mergedPublishedOn(dst, src, mode)
}

// mergedTitle bevorzugt den Pure-Titel; trägt dieser einen eigenen Untertitel,
// der nicht schon im Titel enthalten ist, wird "Titel: Untertitel" gebildet.
// Ohne Pure-Seite gewinnt der längere Titel.
func mergedTitle(dst, src *models.Publication, dstPure, srcPure bool) string {
	var pure *models.Publication
	switch {
	case dstPure:
		pure = dst
	case srcPure:
		pure = src
	}
	if pure != nil {
		title := pure.Title
		sub := strings.TrimSpace(pure.SecondaryTitle)
		if sub != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(sub)) {
			title = title + ": " + sub
		}
		return title
	}
	return longerValue(dst.Title, src.Title)
}

// mergedSecondaryTitle: leer, sobald eine Pure-Seite beteiligt ist (der
// Untertitel steckt dann im Titel); sonst der erste nicht-redundante Untertitel.
func mergedSecondaryTitle(dst, src *models.Publication, dstPure, srcPure bool) string {
	if dstPure || srcPure {
		return ""
	}
	title := strings.ToLower(longerValue(dst.Title, src.Title))
	for _, sub := range []string{dst.SecondaryTitle, src.SecondaryTitle} {
		sub = strings.TrimSpace(sub)
		if sub != "" && !strings.Contains(title, strings.ToLower(sub)) {
			return sub
		}
	}
	return ""
}

// mergedPublicationType: bei genau einer "Other"-Seite gewinnt die typisierte,
// sonst der längere Wert.
func mergedPublicationType(a, b string) string {
	aOther := strings.EqualFold(strings.TrimSpace(a), models.PublicationTypeOther)
	bOther := strings.EqualFold(strings.TrimSpace(b), models.PublicationTypeOther)
	switch {
	case aOther && !bOther && strings.TrimSpace(b) != "":
		return b
	case bOther && !aOther && strings.TrimSpace(a) != "":
		return a
	}
	return longerValue(a, b)
}

// mergedPublishedOn: beim Fuzzy-Match gewinnt das früheste bekannte Datum,
// beim strengen DOI-Match das jüngste. Die Asymmetrie ist aus dem
// Ursprungssystem übernommen, siehe DESIGN.md.
func mergedPublishedOn(dst, src *models.Publication, mode MergeMode) *time.Time {
	a, b := dst.PublishedOn, src.PublishedOn
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if mode == MatchDOI {
		if b.After(*a) {
			return b
		}
		return a
	}
	if b.Before(*a) {
		return b
	}
	return a
}

// NormalizeISSN entfernt alle Zeichen außer [0-9xX], schneidet bzw. füllt auf
// acht Stellen und setzt den Bindestrich nach der vierten Stelle.
func NormalizeISSN(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == 'x' || r == 'X' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) > 8 {
		digits = digits[:8]
	}
	for len(digits) < 8 {
		digits += "0"
	}
	return digits[:4] + "-" + digits[4:]
}

// allPairsDOIMatch prüft, ob jedes Mitgliederpaar die strenge DOI-Policy erfüllt.
func allPairsDOIMatch(members []models.Publication) bool {
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			if !DOIMatchPolicy(&members[i], &members[j]) {
				return false
			}
		}
	}
	return true
}

// importSources liefert je Publikations-ID die Menge ihrer Import-Quellen.
func importSources(tx *gorm.DB, members []models.Publication) (map[uint]map[string]bool, error) {
	ids := make([]uint, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].ID)
	}
	var imports []models.PublicationImport
	if err := tx.Where("publication_id IN ?", ids).Find(&imports).Error; err != nil {
		return nil, fmt.Errorf("import-quellen laden: %w", err)
	}
	sources := make(map[uint]map[string]bool, len(members))
	for _, id := range ids {
		sources[id] = map[string]bool{}
	}
	for _, imp := range imports {
		sources[imp.PublicationID][imp.Source] = true
	}
	return sources, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// longerValue: längerer nicht-leerer Wert, links bevorzugt bei Gleichstand.
func longerValue(a, b string) string {
	if len(strings.TrimSpace(b)) > len(strings.TrimSpace(a)) {
		return b
	}
	return a
}
