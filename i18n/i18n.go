// Package i18n holds the fr/en message catalog for API error codes and
// notification texts. French is the default and the fallback.
package i18n

import "strings"

var catalog = map[string]map[string]string{
	"fr": {
		"required":           "Requis",
		"must_be_positive":   "Doit être positif",
		"out_of_range":       "Hors limites",
		"invalid_percentage": "Pourcentage invalide (0-100)",
		"siret_length":       "Le SIRET doit comporter 14 chiffres",
		"siret_digits":       "Le SIRET ne doit contenir que des chiffres",
		"code_already_exists": "Ce code existe déjà",
		"unauthorized":        "Authentification requise",
		"forbidden":           "Accès refusé",
		"not_found":           "Introuvable",
		"document_finalized":  "Document finalisé, modification impossible",
		"insufficient_points": "Points de fidélité insuffisants",
		"category_depth":      "Deux niveaux de catégories maximum",
		"category_in_use":     "Catégorie utilisée par des articles",
		"empty_document":      "Le document ne contient aucune ligne",
		"wrong_document_type":   "Type de document invalide",
		"wrong_document_status": "Statut du document incompatible",
		"unknown_article":       "Article inconnu",
		"no_serie_for_type":     "Aucune série de numérotation pour ce type",
		"serie_in_use":          "Série déjà utilisée par des documents",
		"document_failed":       "Opération sur le document impossible",
	},
	"en": {
		"required":           "Required",
		"must_be_positive":   "Must be positive",
		"out_of_range":       "Out of range",
		"invalid_percentage": "Invalid percentage (0-100)",
		"siret_length":       "SIRET must be 14 digits",
		"siret_digits":       "SIRET must contain digits only",
		"code_already_exists": "Code already exists",
		"unauthorized":        "Authentication required",
		"forbidden":           "Access denied",
		"not_found":           "Not found",
		"document_finalized":  "Document is finalized and cannot be edited",
		"insufficient_points": "Insufficient loyalty points",
		"category_depth":      "At most two category levels",
		"category_in_use":     "Category still referenced by articles",
		"empty_document":      "Document has no lines",
		"wrong_document_type":   "Invalid document type",
		"wrong_document_status": "Incompatible document status",
		"unknown_article":       "Unknown article",
		"no_serie_for_type":     "No numbering series for this type",
		"serie_in_use":          "Series already used by documents",
		"document_failed":       "Document operation failed",
	},
}

// T translates a message code. Unknown languages fall back to French;
// unknown codes fall back to the code itself.
func T(lang, code string) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog["fr"]
	}
	if msg, ok := msgs[code]; ok {
		return msg
	}
	if msg, ok := catalog["fr"][code]; ok {
		return msg
	}
	return code
}

// DetectLanguage picks fr or en from an Accept-Language header value.
func DetectLanguage(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if strings.HasPrefix(h, "en") {
		return "en"
	}
	return "fr"
}
