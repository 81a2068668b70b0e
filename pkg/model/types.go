package model

import internalmodel "github.com/goliatone/go-boarding/internal/model"

// FieldType re-exports the internal FieldType enumeration.
type FieldType = internalmodel.FieldType

const (
	FieldTypeString  = internalmodel.FieldTypeString
	FieldTypeInteger = internalmodel.FieldTypeInteger
	FieldTypeNumber  = internalmodel.FieldTypeNumber
	FieldTypeBoolean = internalmodel.FieldTypeBoolean
	FieldTypeObject  = internalmodel.FieldTypeObject
	FieldTypeGroup   = internalmodel.FieldTypeGroup
	FieldTypeFile    = internalmodel.FieldTypeFile
)

const (
	ValidationRuleRequired = internalmodel.ValidationRuleRequired
	ValidationRuleDigits   = internalmodel.ValidationRuleDigits
	ValidationRuleLength   = internalmodel.ValidationRuleLength
	ValidationRuleMin      = internalmodel.ValidationRuleMin
	ValidationRuleMax      = internalmodel.ValidationRuleMax
	ValidationRulePattern  = internalmodel.ValidationRulePattern
	ValidationRuleEmail    = internalmodel.ValidationRuleEmail
	ValidationRuleDomain   = internalmodel.ValidationRuleDomain
	ValidationRuleDate     = internalmodel.ValidationRuleDate
	ValidationRuleEnum     = internalmodel.ValidationRuleEnum
	ValidationRuleNonEmpty = internalmodel.ValidationRuleNonEmpty

	RefinementSum = internalmodel.RefinementSum
)

type ValidationRule = internalmodel.ValidationRule
type Option = internalmodel.Option
type Field = internalmodel.Field
type Page = internalmodel.Page
type Refinement = internalmodel.Refinement
type FormModel = internalmodel.FormModel

// Humanize turns a field name into a display label.
func Humanize(name string) string { return internalmodel.Humanize(name) }

// LabelFields copies fields, labelling the ones that have no label.
func LabelFields(fields []Field) []Field { return internalmodel.LabelFields(fields) }
