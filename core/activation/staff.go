package activation

import (
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/user"
)

// StaffRole is the job of a staff member. It decides the default permissions set on activation.
type StaffRole string

const (
	StaffRoleAdmin      StaffRole = "admin"
	StaffRoleTeacher    StaffRole = "teacher"
	StaffRoleAccountant StaffRole = "accountant"
	StaffRoleSecretary  StaffRole = "secretary"
)

// Permissions
const (
	PermStudentsRead     = "students:read"
	PermStudentsWrite    = "students:write"
	PermParentsRead      = "parents:read"
	PermParentsWrite     = "parents:write"
	PermStaffRead        = "staff:read"
	PermStaffWrite       = "staff:write"
	PermCoursesRead      = "courses:read"
	PermCoursesWrite     = "courses:write"
	PermEnrollmentsRead  = "enrollments:read"
	PermEnrollmentsWrite = "enrollments:write"
	PermAttendanceWrite  = "attendance:write"
	PermGradesWrite      = "grades:write"
	PermPaymentsRead     = "payments:read"
	PermPaymentsWrite    = "payments:write"
	PermPayrollRead      = "payroll:read"
	PermPayrollWrite     = "payroll:write"
	PermInvitesWrite     = "invites:write"
	PermSettingsWrite    = "settings:write"
)

var StaffRoles = []StaffRole{StaffRoleAdmin, StaffRoleTeacher, StaffRoleAccountant, StaffRoleSecretary}

func ParseStaffRole(s string) (StaffRole, error) {
	role := StaffRole(core.CleanString(s, true /* lower */))
	if _, err := role.Permissions(); err != nil {
		return "", err
	}
	return role, nil
}

// Permissions returns the default permissions of the role.
// Every StaffRole must have a case here: unknown roles are an error, never an empty set.
func (r StaffRole) Permissions() ([]string, error) {
	switch r {
	case StaffRoleAdmin:
		return []string{
			PermStudentsRead, PermStudentsWrite,
			PermParentsRead, PermParentsWrite,
			PermStaffRead, PermStaffWrite,
			PermCoursesRead, PermCoursesWrite,
			PermEnrollmentsRead, PermEnrollmentsWrite,
			PermAttendanceWrite, PermGradesWrite,
			PermPaymentsRead, PermPaymentsWrite,
			PermPayrollRead, PermPayrollWrite,
			PermInvitesWrite, PermSettingsWrite,
		}, nil
	case StaffRoleTeacher:
		return []string{
			PermStudentsRead,
			PermCoursesRead,
			PermEnrollmentsRead,
			PermAttendanceWrite, PermGradesWrite,
		}, nil
	case StaffRoleAccountant:
		return []string{
			PermStudentsRead, PermParentsRead, PermStaffRead,
			PermPaymentsRead, PermPaymentsWrite,
			PermPayrollRead, PermPayrollWrite,
		}, nil
	case StaffRoleSecretary:
		return []string{
			PermStudentsRead, PermStudentsWrite,
			PermParentsRead, PermParentsWrite,
			PermCoursesRead,
			PermEnrollmentsRead, PermEnrollmentsWrite,
			PermInvitesWrite,
		}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownStaffRole, "%q", string(r))
	}
}

// UserRoles returns the identity roles granted to a staff member with this role.
func (r StaffRole) UserRoles() []string {
	switch r {
	case StaffRoleAdmin:
		return []string{user.RoleStaffAdmin, user.RoleAdmin}
	case StaffRoleTeacher:
		return []string{user.RoleStaffTeacher}
	case StaffRoleAccountant:
		return []string{user.RoleStaffAccountant}
	case StaffRoleSecretary:
		return []string{user.RoleStaffSecretary}
	default:
		return []string{user.RoleStaff}
	}
}
