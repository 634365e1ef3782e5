package domain

import "time"

// StaffRole is a support staff member's role in the escalation chain.
type StaffRole string

const (
	RoleSupportAgent        StaffRole = "support_agent"
	RoleSeniorSupport       StaffRole = "senior_support"
	RoleTechnicalSpecialist StaffRole = "technical_specialist"
	RoleSupportManager      StaffRole = "support_manager"
)

// SkillLevel grades a staff member's expertise.
type SkillLevel string

const (
	SkillJunior SkillLevel = "junior"
	SkillSenior SkillLevel = "senior"
	SkillExpert SkillLevel = "expert"
)

// StaffMember is one entry in the support roster.
// Workload is mutated only through the roster's assign/release protocol.
type StaffMember struct {
	ID                 string        `json:"id" yaml:"id"`
	Name               string        `json:"name" yaml:"name"`
	Role               StaffRole     `json:"role" yaml:"role"`
	Specialties        []string      `json:"specialties" yaml:"specialties"`
	CurrentWorkload    int           `json:"currentWorkload" yaml:"-"`
	MaxCapacity        int           `json:"maxCapacity" yaml:"maxCapacity"`
	SkillLevel         SkillLevel    `json:"skillLevel" yaml:"skillLevel"`
	ShiftOnline        bool          `json:"shiftOnline" yaml:"shiftOnline"`
	MeanResponseTime   time.Duration `json:"meanResponseTime" yaml:"meanResponseTime"`
	SatisfactionRating float64       `json:"satisfactionRating" yaml:"satisfactionRating"`
}

// Available reports whether the member can take another assignment.
func (s StaffMember) Available() bool {
	return s.ShiftOnline && s.CurrentWorkload < s.MaxCapacity
}

// HasSpecialty reports whether the member covers the given category.
// A "general" specialty covers every category.
func (s StaffMember) HasSpecialty(category string) bool {
	for _, sp := range s.Specialties {
		if sp == category || sp == "general" {
			return true
		}
	}
	return false
}
