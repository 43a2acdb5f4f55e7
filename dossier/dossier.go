// CLAUDE:SUMMARY Extracts one officer's dossier (rank, identity, birth, education, contacts, service history, signature) from a personnel reference docx.
// Package dossier extracts a personnel dossier from a single-subject
// reference document ("справка-объективка"). Every field is best effort: a
// field that cannot be recognized stays nil or empty and never aborts the
// extraction of the others.
package dossier

import (
	"github.com/hazyhaar/kadry/docpipe"
)

// Dossier is the structured record of one document.
type Dossier struct {
	SourceFile          string         `json:"source_file"`
	Rank                *Rank          `json:"rank"`
	FullName            string         `json:"full_name"`
	PersonalNumber      string         `json:"personal_number"`
	Birth               *Birth         `json:"birth"`
	IIN                 string         `json:"iin"`
	Nationality         string         `json:"nationality"`
	Education           Education      `json:"education"`
	Awards              string         `json:"awards"`
	Penalties           string         `json:"penalties"`
	CombatParticipation string         `json:"combat_participation"`
	ForeignTrips        string         `json:"foreign_trips"`
	MaritalStatus       string         `json:"marital_status"`
	MaritalStatusCode   MaritalStatus  `json:"marital_status_code"`
	Email               *string        `json:"email"`
	ServiceHistory      []ServiceEntry `json:"service_history"`
	SignBlock           SignBlock      `json:"sign_block"`
}

// Rank is the subject's rank and the ISO date it was assigned.
type Rank struct {
	Name  string  `json:"name"`
	Since *string `json:"since"`
}

// Birth holds the ISO birth date and the free-text birth place.
type Birth struct {
	Date  *string `json:"date"`
	Place *string `json:"place"`
}

// Education is free text for civil and military education.
type Education struct {
	Civil    string `json:"civil"`
	Military string `json:"military"`
}

// ServiceEntry is one line of service history. A nil To means "to present".
type ServiceEntry struct {
	From     *string `json:"from"`
	To       *string `json:"to"`
	Position string  `json:"position"`
}

// SignBlock is the HR signature at the bottom of the document. It is read
// positionally and is not authoritative.
type SignBlock struct {
	HRTitle      string `json:"hr_title,omitempty"`
	Organization string `json:"organization,omitempty"`
	HRRank       string `json:"hr_rank,omitempty"`
	HRName       string `json:"hr_name,omitempty"`
}

// Labels of the fields read with a labeled lookup.
const (
	LabelFullName       = "Ф.И.О."
	LabelPersonalNumber = "личный номер"
	LabelBirth          = "Число, месяц, год и место рождения"
	LabelIIN            = "Индивидуальный идентификационный номер"
	LabelNationality    = "Национальность"
	LabelCivilEdu       = "а) гражданское"
	LabelMilitaryEdu    = "б) военное"
	LabelAwards         = "Государственные награды"
	LabelPenalties      = "Взыскания"
	LabelCombat         = "Участие в боевых действиях"
	LabelForeignTrips   = "Длительные заграничные командировки"
	LabelMarital        = "Семейное положение"
)

// Extract reads the dossier of doc. It assumes the document describes a
// single person: the first rank line found names the subject.
func Extract(doc *docpipe.Document) *Dossier {
	lines := doc.Paragraphs()

	rank, rankIdx := findRank(lines)
	marital := lookup(lines, LabelMarital)

	d := &Dossier{
		SourceFile:          doc.Name,
		Rank:                rank,
		FullName:            findFullName(lines, rankIdx),
		PersonalNumber:      lookup(lines, LabelPersonalNumber),
		Birth:               parseBirth(lookup(lines, LabelBirth)),
		IIN:                 lookup(lines, LabelIIN),
		Nationality:         lookup(lines, LabelNationality),
		Education:           Education{Civil: lookup(lines, LabelCivilEdu), Military: lookup(lines, LabelMilitaryEdu)},
		Awards:              lookup(lines, LabelAwards),
		Penalties:           lookup(lines, LabelPenalties),
		CombatParticipation: lookup(lines, LabelCombat),
		ForeignTrips:        lookup(lines, LabelForeignTrips),
		MaritalStatus:       marital,
		MaritalStatusCode:   MapMaritalStatus(marital),
		Email:               FindEmail(lines),
		SignBlock:           signature(lines),
	}

	if h, ok := HistoryFromTables(doc.Tables()); ok {
		d.ServiceHistory = h
	} else {
		d.ServiceHistory = HistoryFromParagraphs(lines)
	}
	if d.ServiceHistory == nil {
		d.ServiceHistory = []ServiceEntry{}
	}
	return d
}
