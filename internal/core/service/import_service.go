package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
)

// DefaultImportActor is recorded as createdBy for users created by an import.
const DefaultImportActor = "SYSTEM_IMPORT"

const (
	userSheetLabel       = "Sheet User"
	permissionSheetLabel = "Sheet Permissions"
	dateFormatMessage    = "invalid date format (dd/MM/yyyy)"
)

var (
	nineDigits  = regexp.MustCompile(`^\d{9}$`)
	mobilePhone = regexp.MustCompile(`^0\d{9}$`)
)

// ImportConfig holds the tunables of the bulk import.
type ImportConfig struct {
	Actor       string
	EmailDomain string
	Extension   string
}

type ImportService struct {
	parser      ports.WorkbookParser
	users       ports.UserRepository
	roles       ports.RoleCatalog
	ids         ports.IDSequence
	policy      FilePolicy
	emailDomain string
	email       *regexp.Regexp
	actor       string
	clock       func() time.Time
	log         zerolog.Logger
}

func NewImportService(
	parser ports.WorkbookParser,
	users ports.UserRepository,
	roles ports.RoleCatalog,
	ids ports.IDSequence,
	cfg ImportConfig,
	log zerolog.Logger,
) *ImportService {
	if cfg.Actor == "" {
		cfg.Actor = DefaultImportActor
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = DefaultEmailDomain
	}
	return &ImportService{
		parser:      parser,
		users:       users,
		roles:       roles,
		ids:         ids,
		policy:      FilePolicy{Extension: cfg.Extension},
		emailDomain: cfg.EmailDomain,
		email:       CorporateEmailPattern(cfg.EmailDomain),
		actor:       cfg.Actor,
		clock:       time.Now,
		log:         log,
	}
}

// importRun carries the working set of one ImportUsers call.
type importRun struct {
	valid    map[string]*domain.User
	order    []string
	created  map[string]bool
	touched  map[string]bool
	stored   map[string][]domain.UserRole
	added    map[string][]domain.UserRole
	roleMap  map[string]string
	warnings []string
	errors   []string
}

// ImportUsers validates both sheets of the workbook and saves every valid
// user together with its permissions. Row problems are reported in the
// result; only unreadable files return an error.
func (s *ImportService) ImportUsers(ctx context.Context, file domain.UploadFile) (*domain.ImportResult, error) {
	// 1. Extension check on the original name.
	if reason := s.policy.Reject(file.Name); reason != "" {
		return nil, fmt.Errorf("import users: %w: %s", domain.ErrUnsupportedFile, reason)
	}

	// 2. Parse the workbook.
	wb, err := s.parser.Parse(bytes.NewReader(file.Content))
	if err != nil {
		return nil, fmt.Errorf("import users: %w", err)
	}

	// 3. Role catalog, keyed case-insensitively.
	names, err := s.roles.RoleNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("import users: load roles: %w", err)
	}
	run := &importRun{
		valid:   make(map[string]*domain.User),
		created: make(map[string]bool),
		touched: make(map[string]bool),
		stored:  make(map[string][]domain.UserRole),
		added:   make(map[string][]domain.UserRole),
		roleMap: make(map[string]string, len(names)),
	}
	for _, n := range names {
		run.roleMap[strings.ToUpper(n)] = n
	}

	// 4. Users already in the directory.
	existing, err := s.existingUsers(ctx, wb.Users)
	if err != nil {
		return nil, fmt.Errorf("import users: %w", err)
	}

	// 5. User sheet.
	now := s.clock().UTC()
	for _, row := range wb.Users {
		if u, ok := existing[row.UserName]; ok {
			run.warnings = append(run.warnings, fmt.Sprintf(
				"%s - Row %d: username '%s' already exists (permissions will be added if any)",
				userSheetLabel, row.Line, row.UserName))
			if _, seen := run.valid[u.UserName]; !seen {
				uc := u
				run.valid[uc.UserName] = &uc
				run.order = append(run.order, uc.UserName)
				run.stored[uc.UserName] = append([]domain.UserRole(nil), uc.UserRoles...)
			}
			continue
		}

		u, problems := s.validateUserRow(row, run.valid)
		if len(problems) > 0 {
			run.errors = append(run.errors, fmt.Sprintf("%s - Row %d: %s", userSheetLabel, row.Line, strings.Join(problems, "; ")))
			continue
		}
		u.CreatedBy = s.actor
		u.CreatedTime = domain.NewTimestamp(now)
		run.valid[u.UserName] = u
		run.order = append(run.order, u.UserName)
		run.created[u.UserName] = true
	}

	// 6. Permission sheet.
	for _, row := range wb.Permissions {
		if problems := s.applyPermissionRow(row, run); len(problems) > 0 {
			run.errors = append(run.errors, fmt.Sprintf("%s - Row %d: %s", permissionSheetLabel, row.Line, strings.Join(problems, "; ")))
		}
	}

	// 7. Allocate ids and persist.
	if err := s.persist(ctx, run); err != nil {
		s.log.Error().Err(err).Str("file", file.Name).Msg("failed to save imported users")
		return nil, fmt.Errorf("import users: %w", err)
	}

	newUsers := len(run.created)
	updated := len(run.valid) - newUsers
	result := &domain.ImportResult{
		TotalRows:    len(wb.Users) + len(wb.Permissions),
		SuccessCount: len(run.valid),
		ErrorCount:   len(run.errors),
		ErrorDetails: append(append([]string{}, run.warnings...), run.errors...),
		Message: fmt.Sprintf("Created: %d users, permissions updated: %d users, warnings: %d",
			newUsers, updated, len(run.warnings)),
	}

	s.log.Info().
		Str("file", file.Name).
		Int("total_rows", result.TotalRows).
		Int("created", newUsers).
		Int("updated", updated).
		Int("warnings", len(run.warnings)).
		Int("errors", result.ErrorCount).
		Msg("user import finished")

	return result, nil
}

func (s *ImportService) existingUsers(ctx context.Context, rows []ports.UserRow) (map[string]domain.User, error) {
	seen := make(map[string]bool, len(rows))
	var names []string
	for _, r := range rows {
		if r.UserName != "" && !seen[r.UserName] {
			seen[r.UserName] = true
			names = append(names, r.UserName)
		}
	}
	out := make(map[string]domain.User)
	if len(names) == 0 {
		return out, nil
	}
	found, err := s.users.FindByUserNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("find existing users: %w", err)
	}
	for _, u := range found {
		out[u.UserName] = u
	}
	return out, nil
}

// validateUserRow collects every problem of row instead of stopping at the
// first one.
func (s *ImportService) validateUserRow(row ports.UserRow, valid map[string]*domain.User) (*domain.User, []string) {
	var problems []string

	if row.UserName == "" {
		problems = append(problems, "username is empty")
	} else if _, dup := valid[row.UserName]; dup {
		problems = append(problems, fmt.Sprintf("username '%s' is duplicated in the file", row.UserName))
	}

	emailOK := true
	switch {
	case row.Email == "":
		problems = append(problems, "email is empty")
		emailOK = false
	case !s.email.MatchString(row.Email):
		problems = append(problems, "email must be an @"+s.emailDomain+" address")
		emailOK = false
	}
	if emailOK && row.UserName != "" {
		prefix, _, _ := strings.Cut(row.Email, "@")
		if prefix != row.UserName {
			problems = append(problems, fmt.Sprintf("username (%s) does not match the email prefix (%s)", row.UserName, prefix))
		}
	}

	if row.FullName == "" {
		problems = append(problems, "full name is empty")
	}

	phone := row.Phone
	if phone != "" {
		phone = stripSpaces(phone)
		if nineDigits.MatchString(phone) {
			phone = "0" + phone
		}
		if !mobilePhone.MatchString(phone) {
			problems = append(problems, "invalid phone number")
		}
	}

	if row.Department == "" {
		problems = append(problems, "department is empty")
	}
	if row.DateErr != nil {
		problems = append(problems, dateFormatMessage)
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return &domain.User{
		UserName:  row.UserName,
		Email:     row.Email,
		FullName:  row.FullName,
		BirthDay:  row.BirthDay,
		Gender:    domain.NormalizeGender(row.Gender),
		Phone:     phone,
		Status:    domain.StatusActive,
		UserRoles: []domain.UserRole{},
	}, nil
}

func (s *ImportService) applyPermissionRow(row ports.PermissionRow, run *importRun) []string {
	var problems []string

	if row.UserName == "" {
		problems = append(problems, "username is empty")
	}
	user := run.valid[row.UserName]
	if user == nil {
		problems = append(problems, fmt.Sprintf("username '%s' is not in the User sheet or has errors", row.UserName))
	}
	if row.Bank == "" {
		problems = append(problems, "bank is empty")
	}
	if row.Branch == "" {
		problems = append(problems, "branch is empty")
	}

	var roleName string
	if row.RoleName == "" {
		problems = append(problems, "role is empty")
	} else if canonical, ok := run.roleMap[strings.ToUpper(row.RoleName)]; ok {
		roleName = canonical
	} else {
		problems = append(problems, fmt.Sprintf("role '%s' does not exist", row.RoleName))
	}
	if row.DateErr != nil {
		problems = append(problems, dateFormatMessage)
	}
	if len(problems) > 0 {
		return problems
	}

	candidate := domain.UserRole{
		Type:     row.Type,
		Bank:     row.Bank,
		Branch:   row.Branch,
		RoleName: roleName,
		FromDate: row.FromDate,
		ToDate:   row.ToDate,
	}
	scope := fmt.Sprintf("[%s - %s - %s - %s]", roleName, row.Bank, row.Branch, row.Type)

	for _, r := range run.stored[user.UserName] {
		if r.SameScope(candidate) && r.Overlaps(candidate) {
			return []string{fmt.Sprintf("permission %s already exists for user '%s'", scope, user.UserName)}
		}
	}
	for _, r := range run.added[user.UserName] {
		if r.SameScope(candidate) {
			return []string{fmt.Sprintf("permission %s is duplicated in the file for user '%s'", scope, user.UserName)}
		}
	}

	run.added[user.UserName] = append(run.added[user.UserName], candidate)
	run.touched[user.UserName] = true
	return nil
}

// persist assigns ids to new users and new assignments, then saves every
// user that was created or received permissions.
func (s *ImportService) persist(ctx context.Context, run *importRun) error {
	if len(run.created) > 0 {
		first, err := s.ids.Next(ctx, seqUsers, len(run.created))
		if err != nil {
			return fmt.Errorf("allocate user ids: %w", err)
		}
		n := int64(0)
		for _, name := range run.order {
			if run.created[name] {
				run.valid[name].ID = first + n
				n++
			}
		}
	}

	roleCount := 0
	for _, roles := range run.added {
		roleCount += len(roles)
	}
	var nextRole int64
	if roleCount > 0 {
		first, err := s.ids.Next(ctx, seqUserRoles, roleCount)
		if err != nil {
			return fmt.Errorf("allocate role ids: %w", err)
		}
		nextRole = first
	}

	var batch []domain.User
	for _, name := range run.order {
		if !run.created[name] && !run.touched[name] {
			continue
		}
		u := run.valid[name]
		for _, r := range run.added[name] {
			r.Ref = domain.PersistedRole{ID: nextRole}
			nextRole++
			u.UserRoles = append(u.UserRoles, r)
		}
		batch = append(batch, *u)
	}
	if len(batch) == 0 {
		return nil
	}
	return s.users.SaveAll(ctx, batch)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
