package isu

import (
	"fmt"
	"isugrades-backend/pkg/htmlutil"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// the labels are matched exactly as the portal prints them
const (
	LabelRecordBook      = "Зачетная книжка"
	LabelFullName        = "ФИО"
	LabelStudyCode       = "Код специальности"
	LabelStudyName       = "Название специальности"
	LabelFaculty         = "Факультет"
	LabelEnrollmentOrder = "Дата зачисления"
)

const (
	FieldRecordBook      = "record_book"
	FieldFullName        = "full_name"
	FieldStudyCode       = "study_code"
	FieldStudyName       = "study_name"
	FieldFaculty         = "faculty"
	FieldEnrollmentOrder = "enrollment_order"
)

// gradebookLabels maps a printed label to the field it fills.
var gradebookLabels = map[string]string{
	LabelRecordBook:      FieldRecordBook,
	LabelFullName:        FieldFullName,
	LabelStudyCode:       FieldStudyCode,
	LabelStudyName:       FieldStudyName,
	LabelFaculty:         FieldFaculty,
	LabelEnrollmentOrder: FieldEnrollmentOrder,
}

// LabeledFields is the result of ExtractLabeledFields.
type LabeledFields struct {
	values    map[string]string
	requested []string
}

// Get returns the value of a field, ok is false if its label was not on the
// page.
func (f LabeledFields) Get(field string) (string, bool) {
	value, ok := f.values[field]
	return value, ok
}

// Missing returns every requested field that was not found, sorted.
func (f LabeledFields) Missing() []string {
	var missing []string
	for _, field := range f.requested {
		if _, ok := f.values[field]; !ok {
			missing = append(missing, field)
		}
	}
	slices.Sort(missing)
	return missing
}

// ExtractLabeledFields reads the student info table, where every row is a
// `th.th-student` label followed by a cell holding its value. `labels` maps
// the printed label to the name of the field to fill. Rows with unknown labels
// are ignored and a repeated label keeps its first value, so the result does
// not depend on the order of rows.
func ExtractLabeledFields(doc *goquery.Document, labels map[string]string) (LabeledFields, error) {
	result := LabeledFields{
		values:    make(map[string]string, len(labels)),
		requested: make([]string, 0, len(labels)),
	}
	for _, field := range labels {
		result.requested = append(result.requested, field)
	}

	headers := doc.Find("th.th-student")
	if headers.Length() == 0 {
		return result, fmt.Errorf("%w: no th.th-student cells", ErrParseStructure)
	}

	headers.Each(func(_ int, th *goquery.Selection) {
		label := htmlutil.CleanText(htmlutil.GetText(th.Get(0)))
		field, known := labels[label]
		if !known {
			return
		}
		if _, seen := result.values[field]; seen {
			return
		}
		cell := th.Next()
		if cell.Length() == 0 {
			return
		}
		result.values[field] = htmlutil.CleanText(htmlutil.GetText(cell.Get(0)))
	})

	return result, nil
}

// ExtractFormToken returns the numeric value of the login form's `form_num`
// input.
func ExtractFormToken(doc *goquery.Document) (int, error) {
	value, exists := doc.Find("input[name=form_num]").First().Attr("value")
	if !exists {
		return 0, ErrTokenNotFound
	}
	token, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrTokenNotFound, value)
	}
	return token, nil
}

// ExtractGradebookLink finds the gradebook button on the person card page and
// resolves it against base.
func ExtractGradebookLink(doc *goquery.Document, base *url.URL) (*url.URL, error) {
	anchors := htmlutil.GetAnchors(base, doc.Find("a.btn-warning"))
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: no gradebook link (a.btn-warning)", ErrParseStructure)
	}
	return anchors[0].Url, nil
}

// Gradebook is the student info printed on the gradebook page.
type Gradebook struct {
	RecordBook      int64
	FullName        string
	StudyCode       string
	StudyName       string
	Faculty         string
	EnrollmentOrder string
	// Missing lists the fields that were not on the page, they are left empty.
	Missing []string
}

// ParseGradebook extracts the gradebook from an already whitespace collapsed
// document. The record book number is the identity of a gradebook, so it must
// be present and numeric.
func ParseGradebook(doc *goquery.Document) (Gradebook, error) {
	fields, err := ExtractLabeledFields(doc, gradebookLabels)
	if err != nil {
		return Gradebook{}, err
	}

	rawId, ok := fields.Get(FieldRecordBook)
	if !ok {
		return Gradebook{}, ErrMissingRecordBook
	}
	recordBook, err := strconv.ParseInt(rawId, 10, 64)
	if err != nil {
		return Gradebook{}, fmt.Errorf("%w: %q is not a number", ErrMissingRecordBook, rawId)
	}

	get := func(field string) string {
		value, _ := fields.Get(field)
		return value
	}
	return Gradebook{
		RecordBook:      recordBook,
		FullName:        get(FieldFullName),
		StudyCode:       get(FieldStudyCode),
		StudyName:       get(FieldStudyName),
		Faculty:         get(FieldFaculty),
		EnrollmentOrder: get(FieldEnrollmentOrder),
		Missing:         fields.Missing(),
	}, nil
}
