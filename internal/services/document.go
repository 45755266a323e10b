package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gestifac/internal/models"
	"gestifac/internal/totals"
)

var (
	ErrDocFinalized    = errors.New("document_finalized")
	ErrEmptyDocument   = errors.New("empty_document")
	ErrWrongType       = errors.New("wrong_document_type")
	ErrWrongStatus     = errors.New("wrong_document_status")
	ErrUnknownArticle  = errors.New("unknown_article")
	ErrUnknownDocument = errors.New("unknown_document")
)

// LineInput is what the API accepts for one document line. For
// article-bound lines, price and rate are taken from the catalog — any
// hand-edited values the client sends are discarded.
type LineInput struct {
	ArticleID      *uint   `json:"article_id,omitempty"`
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
	TVATaux        float64 `json:"tva_taux"`
	RemisePourcent float64 `json:"remise_pourcent"`
}

// DocumentService implements the document lifecycle: draft editing,
// finalization with number allocation, quote conversion and credit
// notes. Totals always come from the totals engine, never from the
// client.
type DocumentService struct {
	DB      *gorm.DB
	Series  *SerieService
	Loyalty *LoyaltyService
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{DB: db, Series: NewSerieService(db), Loyalty: NewLoyaltyService(db)}
}

// buildLines turns inputs into computed lines. Article-bound lines are
// snapshotted from the catalog (price/rate read-only); free lines keep
// the caller's values.
func (s *DocumentService) buildLines(companyID uint, inputs []LineInput) ([]models.DocumentLine, error) {
	lines := make([]models.DocumentLine, 0, len(inputs))
	for i, in := range inputs {
		l := totals.Line{
			Designation:    in.Designation,
			Quantite:       in.Quantite,
			PrixUnitaireHT: in.PrixUnitaireHT,
			TVATaux:        in.TVATaux,
			RemisePourcent: in.RemisePourcent,
		}
		if in.ArticleID != nil && *in.ArticleID != 0 {
			var art models.Article
			if err := s.DB.Where("company_id = ?", companyID).First(&art, *in.ArticleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrUnknownArticle
				}
				return nil, err
			}
			l.ArticleID = art.ID
			l = totals.ApplyArticle(l, art)
		} else {
			l = totals.ComputeLine(l)
		}
		dl := models.DocumentLine{
			Designation:    l.Designation,
			Quantite:       l.Quantite,
			PrixUnitaireHT: l.PrixUnitaireHT,
			TVATaux:        l.TVATaux,
			RemisePourcent: l.RemisePourcent,
			MontantHT:      l.MontantHT,
			MontantTVA:     l.MontantTVA,
			MontantTTC:     l.MontantTTC,
			Position:       i,
		}
		if l.ArticleID != 0 {
			id := l.ArticleID
			dl.ArticleID = &id
		}
		lines = append(lines, dl)
	}
	return lines, nil
}

func documentTotals(lines []models.DocumentLine) totals.Totals {
	tl := make([]totals.Line, len(lines))
	for i, l := range lines {
		tl[i] = totals.Line{MontantHT: l.MontantHT, MontantTVA: l.MontantTVA, MontantTTC: l.MontantTTC}
	}
	return totals.Aggregate(tl)
}

// Create inserts a draft document with its computed lines.
func (s *DocumentService) Create(userID, companyID uint, docType string, clientID uint, serieID uint, inputs []LineInput) (*models.Document, error) {
	switch docType {
	case models.DocDevis, models.DocFacture, models.DocAvoir:
	default:
		return nil, ErrWrongType
	}
	var client models.Client
	if err := s.DB.Where("company_id = ?", companyID).First(&client, clientID).Error; err != nil {
		return nil, err
	}
	if serieID == 0 {
		serie, err := s.Series.DefaultFor(companyID, docType)
		if err != nil && !errors.Is(err, ErrNoSerie) {
			return nil, err
		}
		if serie != nil {
			serieID = serie.ID
		}
	}
	lines, err := s.buildLines(companyID, inputs)
	if err != nil {
		return nil, err
	}
	t := documentTotals(lines)
	doc := models.Document{
		Type:        docType,
		Status:      models.StatusDraft,
		PublicToken: uuid.NewString(),
		CompanyID:   companyID,
		ClientID:    clientID,
		SerieID:     serieID,
		TotalHT:     t.HT,
		TotalTVA:    t.TVA,
		TotalTTC:    t.TTC,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].DocumentID = doc.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		return audit(tx, userID, "Document", doc.ID, "create", docType)
	})
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return &doc, nil
}

// UpdateLines replaces a draft document's lines and recomputes totals.
// Finalized documents are immutable.
func (s *DocumentService) UpdateLines(userID, companyID, docID uint, inputs []LineInput) (*models.Document, error) {
	var doc models.Document
	if err := s.DB.Where("company_id = ?", companyID).First(&doc, docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownDocument
		}
		return nil, err
	}
	if doc.Status != models.StatusDraft {
		return nil, ErrDocFinalized
	}
	lines, err := s.buildLines(companyID, inputs)
	if err != nil {
		return nil, err
	}
	t := documentTotals(lines)
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].DocumentID = doc.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).
			Updates(map[string]any{"total_ht": t.HT, "total_tva": t.TVA, "total_ttc": t.TTC}).Error; err != nil {
			return err
		}
		return audit(tx, userID, "Document", doc.ID, "update", "lines")
	})
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	doc.TotalHT, doc.TotalTVA, doc.TotalTTC = t.HT, t.TVA, t.TTC
	return &doc, nil
}

// Finalize assigns the document number from its série, freezes the
// document and, for invoices, credits loyalty points to the client.
func (s *DocumentService) Finalize(userID, companyID, docID uint, now time.Time) (*models.Document, error) {
	var doc models.Document
	if err := s.DB.Preload("Lines").Where("company_id = ?", companyID).First(&doc, docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownDocument
		}
		return nil, err
	}
	if doc.Status != models.StatusDraft {
		return nil, ErrDocFinalized
	}
	if len(doc.Lines) == 0 {
		return nil, ErrEmptyDocument
	}
	if doc.SerieID == 0 {
		serie, err := s.Series.DefaultFor(companyID, doc.Type)
		if err != nil {
			return nil, err
		}
		doc.SerieID = serie.ID
	}
	t := documentTotals(doc.Lines)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		numero, err := s.Series.NextNumber(tx, doc.SerieID, now)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"serie_id":      doc.SerieID,
			"numero":        numero,
			"status":        models.StatusFinalized,
			"date_emission": now,
			"total_ht":      t.HT,
			"total_tva":     t.TVA,
			"total_ttc":     t.TTC,
		}
		if doc.Type == models.DocFacture {
			due := now.AddDate(0, 1, 0)
			updates["date_echeance"] = due
		}
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
			return err
		}
		doc.Numero = numero
		if doc.Type == models.DocFacture {
			if err := s.Loyalty.Earn(tx, doc.ClientID, doc.ID, t.TTC, now); err != nil {
				return err
			}
		}
		return audit(tx, userID, "Document", doc.ID, "finalize", numero)
	})
	if err != nil {
		return nil, err
	}
	if err := s.DB.Preload("Lines").First(&doc, doc.ID).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// SetQuoteStatus moves a finalized quote to accepted or refused.
func (s *DocumentService) SetQuoteStatus(userID, companyID, docID uint, status string) error {
	if status != models.StatusAccepted && status != models.StatusRefused {
		return ErrWrongStatus
	}
	var doc models.Document
	if err := s.DB.Where("company_id = ? AND type = ?", companyID, models.DocDevis).First(&doc, docID).Error; err != nil {
		return ErrUnknownDocument
	}
	if doc.Status != models.StatusFinalized {
		return ErrWrongStatus
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).Update("status", status).Error; err != nil {
			return err
		}
		return audit(tx, userID, "Document", doc.ID, "update", status)
	})
}

// ConvertQuote creates a draft invoice from an accepted quote, copying
// its lines, and marks the quote converted.
func (s *DocumentService) ConvertQuote(userID, companyID, quoteID uint) (*models.Document, error) {
	var quote models.Document
	if err := s.DB.Preload("Lines").Where("company_id = ? AND type = ?", companyID, models.DocDevis).First(&quote, quoteID).Error; err != nil {
		return nil, ErrUnknownDocument
	}
	if quote.Status != models.StatusAccepted {
		return nil, ErrWrongStatus
	}
	return s.copyToType(userID, &quote, models.DocFacture, models.StatusConverted)
}

// CreateCreditNote creates a draft credit note (avoir) referencing a
// finalized invoice, with the invoice's lines copied.
func (s *DocumentService) CreateCreditNote(userID, companyID, invoiceID uint) (*models.Document, error) {
	var inv models.Document
	if err := s.DB.Preload("Lines").Where("company_id = ? AND type = ?", companyID, models.DocFacture).First(&inv, invoiceID).Error; err != nil {
		return nil, ErrUnknownDocument
	}
	if inv.Status == models.StatusDraft {
		return nil, ErrWrongStatus
	}
	return s.copyToType(userID, &inv, models.DocAvoir, "")
}

// copyToType duplicates src's lines into a new draft document of the
// given type. When sourceStatus is non-empty, src moves to it.
func (s *DocumentService) copyToType(userID uint, src *models.Document, docType, sourceStatus string) (*models.Document, error) {
	serie, err := s.Series.DefaultFor(src.CompanyID, docType)
	var serieID uint
	if err == nil {
		serieID = serie.ID
	} else if !errors.Is(err, ErrNoSerie) {
		return nil, err
	}
	srcID := src.ID
	doc := models.Document{
		Type:             docType,
		Status:           models.StatusDraft,
		PublicToken:      uuid.NewString(),
		CompanyID:        src.CompanyID,
		ClientID:         src.ClientID,
		SerieID:          serieID,
		SourceDocumentID: &srcID,
		TotalHT:          src.TotalHT,
		TotalTVA:         src.TotalTVA,
		TotalTTC:         src.TotalTTC,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		lines := make([]models.DocumentLine, len(src.Lines))
		for i, l := range src.Lines {
			lines[i] = models.DocumentLine{
				DocumentID:     doc.ID,
				ArticleID:      l.ArticleID,
				Designation:    l.Designation,
				Quantite:       l.Quantite,
				PrixUnitaireHT: l.PrixUnitaireHT,
				TVATaux:        l.TVATaux,
				RemisePourcent: l.RemisePourcent,
				MontantHT:      l.MontantHT,
				MontantTVA:     l.MontantTVA,
				MontantTTC:     l.MontantTTC,
				Position:       l.Position,
			}
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		if sourceStatus != "" {
			if err := tx.Model(&models.Document{}).Where("id = ?", src.ID).Update("status", sourceStatus).Error; err != nil {
				return err
			}
		}
		return audit(tx, userID, "Document", doc.ID, "create", docType+" from "+src.Numero)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarkOverdue flags finalized invoices whose due date passed. Run by
// the cron sweep.
func (s *DocumentService) MarkOverdue(now time.Time) (int64, error) {
	res := s.DB.Model(&models.Document{}).
		Where("type = ? AND status = ? AND date_echeance IS NOT NULL AND date_echeance < ?", models.DocFacture, models.StatusFinalized, now).
		Update("status", models.StatusOverdue)
	return res.RowsAffected, res.Error
}

// audit appends an audit log row inside the caller's transaction.
func audit(tx *gorm.DB, userID uint, entityType string, entityID uint, action, detail string) error {
	return tx.Create(&models.AuditLog{UserID: userID, EntityType: entityType, EntityID: entityID, Action: action, Detail: detail}).Error
}
