// Package catalog holds the static option sets offered by the application form.
package catalog

// Option is one selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
}

// Set is an ordered list of options.
type Set []Option

// Contains reports whether value is one of the set's values.
func (s Set) Contains(value string) bool {
	for _, o := range s {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Values returns the option values in order.
func (s Set) Values() []string {
	out := make([]string, len(s))
	for i, o := range s {
		out[i] = o.Value
	}
	return out
}

func plain(values ...string) Set {
	s := make(Set, len(values))
	for i, v := range values {
		s[i] = Option{Value: v, Label: v}
	}
	return s
}

// Request categories. Correction and Update unlock the data-to-change set.
const (
	CategoryNew         = "New"
	CategoryLost        = "Lost"
	CategoryDamaged     = "Damaged"
	CategoryCorrection  = "Correction"
	CategoryUpdate      = "Update"
	CategoryReplacement = "Replacement"
)

// OtherOption marks the free-text escape in departments and data-change reasons.
const OtherOption = "Other"

// NeedsDataToChange reports whether category requires at least one data-to-change entry.
func NeedsDataToChange(category string) bool {
	return category == CategoryCorrection || category == CategoryUpdate
}

var (
	Departments = plain(
		"Civil Engineering", "Computer Science & Engineering", "Electrical & Electronics Engineering",
		"Electronics & Communication Engineering", "Instrumentation & Control Engineering", "Mechanical Engineering",
		"Metallurgical and Materials Engineering", "Production Engineering", "Chemical Engineering", "Architecture",
		"Integrated Teacher Education Programme (ITEP)", "Physics", "Chemistry", "Mathematics", "Computer Science",
		"Computer Applications", "English", "Management Studies", OtherOption,
	)

	Branches = Set{
		{Value: "CSE", Label: "Computer Science & Engineering"},
		{Value: "ECE", Label: "Electronics & Communication Engineering"},
		{Value: "EEE", Label: "Electrical & Electronics Engineering"},
		{Value: "ME", Label: "Mechanical Engineering"},
		{Value: "CE", Label: "Civil Engineering"},
		{Value: "ICE", Label: "Instrumentation & Control Engineering"},
		{Value: "MME", Label: "Metallurgical & Materials Engineering"},
		{Value: "CHE", Label: "Chemical Engineering"},
		{Value: "PRO", Label: "Production Engineering"},
		{Value: "ARCH", Label: "Architecture"},
		{Value: "CA", Label: "Computer Applications"},
		{Value: "Maths", Label: "Mathematics"},
		{Value: "Phy", Label: "Physics"},
		{Value: "Chem", Label: "Chemistry"},
	}

	Programmes = Set{
		{Value: "B.Tech", Label: "B.Tech", Group: "Under Graduate"},
		{Value: "B.Arch", Label: "B.Arch", Group: "Under Graduate"},
		{Value: "M.Tech", Label: "M.Tech", Group: "Post Graduate"},
		{Value: "M.Sc", Label: "M.Sc", Group: "Post Graduate"},
		{Value: "MBA", Label: "MBA", Group: "Post Graduate"},
		{Value: "MCA", Label: "MCA", Group: "Post Graduate"},
		{Value: "Ph.D", Label: "Ph.D", Group: "Research"},
	}

	Titles = Set{
		{Value: "Prof", Label: "Prof."},
		{Value: "Dr", Label: "Dr."},
		{Value: "Mr", Label: "Mr."},
		{Value: "Ms", Label: "Ms."},
		{Value: "Mrs", Label: "Mrs."},
	}

	BloodGroups = plain("A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-")

	Semesters = plain("1", "2", "3", "4", "5", "6", "7", "8", "9", "10")

	StaffGenders   = plain("Male", "Female")
	StudentGenders = plain("Male", "Female", OtherOption)

	StaffCategories = Set{
		{Value: CategoryNew, Label: "New ID Card"},
		{Value: CategoryCorrection, Label: "Correction"},
		{Value: CategoryUpdate, Label: "Update"},
		{Value: CategoryReplacement, Label: "Replacement"},
	}

	StudentCategories = Set{
		{Value: CategoryNew, Label: "New ID Card"},
		{Value: CategoryLost, Label: "Lost"},
		{Value: CategoryDamaged, Label: "Damaged"},
		{Value: CategoryCorrection, Label: "Data Correction"},
	}

	StaffDataChanges = plain(
		"Name", "Address", "Designation", "Email ID", "Date Of Birth", "Contact No",
		"Transfer / Promotion / Redesignation", OtherOption,
	)

	StudentDataChanges = plain(
		"Name", "Father's Name", "Date Of Birth", "Blood Group", "Address", "Contact No",
		"Programme / Branch", OtherOption,
	)
)

// Bundle is the set of catalogs a form renders for one role.
type Bundle map[string]Set
