// Package form defines the per-role application schemas together with the
// pure field reducer and validator used by the Form step.
package form

import (
	"idcard/internal/catalog"
	"idcard/internal/wizard/models"
)

// Kind selects how a raw input is folded into the draft.
type Kind int

const (
	KindText Kind = iota
	KindSelect
	KindDate
	KindNumber
	KindSet
	KindBool
)

// Well-known field names shared by both schemas.
const (
	FieldRequestCategory = "requestCategory"
	FieldDataToChange    = "dataToChange"
	FieldOtherDataChange = "otherDataChange"
	FieldEmail           = "email"
	FieldRollNo          = "rollNo"
	FieldStaffNo         = "staffNo"
)

// Field describes one draft field.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	Options  catalog.Set
	// AllowOther lets a select take free text (department "Other").
	AllowOther bool
	// Locked fields are written from the verified identity only.
	Locked bool
	// Digits, when set, is the exact digit count the value must have.
	Digits int
	MaxLen int
}

// Schema is the ordered field set for one role.
type Schema struct {
	Name   string
	Fields []Field
	index  map[string]int
}

func newSchema(name string, fields []Field) *Schema {
	s := &Schema{Name: name, Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Defaults returns the empty draft a session starts with.
func (s *Schema) Defaults() models.Draft {
	d := make(models.Draft, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case KindSet:
			d[f.Name] = []string{}
		case KindBool:
			d[f.Name] = false
		default:
			d[f.Name] = ""
		}
	}
	return d
}

// Catalogs returns the option sets the form renders, keyed by field name.
func (s *Schema) Catalogs() catalog.Bundle {
	b := make(catalog.Bundle)
	for _, f := range s.Fields {
		if len(f.Options) > 0 {
			b[f.Name] = f.Options
		}
	}
	return b
}

// For returns the schema of role.
func For(role models.Role) *Schema {
	if role == models.RoleStudent {
		return studentSchema
	}
	return employeeSchema
}

var employeeSchema = newSchema("employee", []Field{
	{Name: FieldRequestCategory, Label: "Request Category", Kind: KindSelect, Required: true, Options: catalog.StaffCategories},
	{Name: FieldDataToChange, Label: "Data to be Changed", Kind: KindSet, Options: catalog.StaffDataChanges},
	{Name: FieldOtherDataChange, Label: "Other Data", Kind: KindText},
	{Name: "title", Label: "Title", Kind: KindSelect, Required: true, Options: catalog.Titles},
	{Name: "staffName", Label: "Name", Kind: KindText, Required: true},
	{Name: FieldStaffNo, Label: "Staff No.", Kind: KindText, Required: true},
	{Name: "designation", Label: "Designation", Kind: KindText, Required: true},
	{Name: "department", Label: "Department / Section", Kind: KindSelect, Required: true, Options: catalog.Departments, AllowOther: true},
	{Name: "dob", Label: "Date of Birth", Kind: KindDate, Required: true},
	{Name: "joiningDate", Label: "Date of Joining", Kind: KindDate, Required: true},
	{Name: "retirementDate", Label: "Date of Retirement", Kind: KindDate},
	{Name: "gender", Label: "Gender", Kind: KindSelect, Required: true, Options: catalog.StaffGenders},
	{Name: "bloodGroup", Label: "Blood Group", Kind: KindSelect, Required: true, Options: catalog.BloodGroups},
	{Name: FieldEmail, Label: "Email ID", Kind: KindText, Locked: true},
	{Name: "phone", Label: "Mobile Number", Kind: KindText, Required: true, Digits: 10, MaxLen: 10},
	{Name: "address", Label: "Address", Kind: KindText, Required: true},
	{Name: "correctionDetails", Label: "Correction Details", Kind: KindText},
	{Name: "officeOrderAttached", Label: "Office Order Attached", Kind: KindBool},
})

var studentSchema = newSchema("student", []Field{
	{Name: "name", Label: "Full Name", Kind: KindText, Required: true},
	{Name: FieldRollNo, Label: "Roll Number", Kind: KindText, Locked: true},
	{Name: FieldEmail, Label: "Email Address", Kind: KindText, Locked: true},
	{Name: "fatherName", Label: "Father's Name", Kind: KindText, Required: true},
	{Name: "motherName", Label: "Mother's Name", Kind: KindText},
	{Name: "dob", Label: "Date of Birth", Kind: KindDate, Required: true},
	{Name: "gender", Label: "Gender", Kind: KindSelect, Required: true, Options: catalog.StudentGenders},
	{Name: "bloodGroup", Label: "Blood Group", Kind: KindSelect, Options: catalog.BloodGroups},
	{Name: "phone", Label: "Mobile Number", Kind: KindText, Required: true, Digits: 10, MaxLen: 10},
	{Name: "parentMobile", Label: "Parent Mobile", Kind: KindText, Required: true, Digits: 10, MaxLen: 10},
	{Name: "permanentAddress", Label: "Address", Kind: KindText, Required: true},
	{Name: "programme", Label: "Programme", Kind: KindSelect, Required: true, Options: catalog.Programmes},
	{Name: "branch", Label: "Branch", Kind: KindSelect, Required: true, Options: catalog.Branches},
	{Name: "batch", Label: "Batch", Kind: KindText, Required: true},
	{Name: "semester", Label: "Semester", Kind: KindSelect, Required: true, Options: catalog.Semesters},
	{Name: "hostel", Label: "Hostel", Kind: KindText},
	{Name: "roomNo", Label: "Room No", Kind: KindText},
	{Name: "issuedBooks", Label: "Issued Books", Kind: KindNumber, Required: true},
	{Name: FieldRequestCategory, Label: "Request Category", Kind: KindSelect, Required: true, Options: catalog.StudentCategories},
	{Name: FieldDataToChange, Label: "Data to be Changed", Kind: KindSet, Options: catalog.StudentDataChanges},
	{Name: FieldOtherDataChange, Label: "Other Data", Kind: KindText},
	{Name: "reasonDetails", Label: "Reason Details", Kind: KindText},
	{Name: "firNumber", Label: "FIR Number", Kind: KindText},
	{Name: "firDate", Label: "FIR Date", Kind: KindDate},
	{Name: "policeStation", Label: "Police Station", Kind: KindText},
})
