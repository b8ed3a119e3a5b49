package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	auditrepo "github.com/dmitrijs2005/tourdesk/internal/server/repositories/audit"
	clientsrepo "github.com/dmitrijs2005/tourdesk/internal/server/repositories/clients"
	packagesrepo "github.com/dmitrijs2005/tourdesk/internal/server/repositories/packages"
	refreshtokensrepo "github.com/dmitrijs2005/tourdesk/internal/server/repositories/refreshtokens"
	reservationsrepo "github.com/dmitrijs2005/tourdesk/internal/server/repositories/reservations"
	usersrepo "github.com/dmitrijs2005/tourdesk/internal/server/repositories/users"
)

// --- helpers ---

var (
	fixedNow = time.Date(2030, time.June, 1, 10, 0, 0, 0, time.UTC)
	admin    = models.Actor{ID: 1, UserName: "alice", Role: models.RoleAdmin}
	clerk    = models.Actor{ID: 2, UserName: "bob", Role: models.RoleAttendant}
)

func clock() time.Time { return fixedNow }

// newSQLMockDB returns a sqlmock database. Fake repositories ignore the
// DBTX they are bound to, so the mock only sees transaction boundaries.
func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// --- in-memory store ---

type store struct {
	mu sync.Mutex

	nextID       int64
	users        map[int64]*models.User
	tokens       map[string]*models.RefreshToken
	packages     map[int64]*models.Package
	clients      map[int64]*models.Client
	reservations map[int64]*models.Reservation
	audit        []models.AuditEntry

	// fail injects an error into the named repository call, e.g. "audit.Append".
	fail map[string]error
}

func newStore() *store {
	return &store{
		users:        map[int64]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
		packages:     map[int64]*models.Package{},
		clients:      map[int64]*models.Client{},
		reservations: map[int64]*models.Reservation{},
		fail:         map[string]error{},
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) err(op string) error {
	return s.fail[op]
}

func (s *store) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audit))
	for _, e := range s.audit {
		out = append(out, e.Action)
	}
	return out
}

func (s *store) addUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	s.users[u.ID] = &u
	return &u
}

func (s *store) addPackage(f models.PackageFields) *models.Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Package{ID: s.id(), PackageFields: f, CreatedAt: fixedNow}
	s.packages[p.ID] = p
	return p
}

func (s *store) addReservations(packageID int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		c := &models.Client{ID: s.id(), Name: "Client", Email: fmt.Sprintf("c%d@example.com", s.nextID)}
		s.clients[c.ID] = c
		r := &models.Reservation{ID: s.id(), ClientID: c.ID, PackageID: packageID, ReservedAt: fixedNow, Status: models.ReservationActive}
		s.reservations[r.ID] = r
	}
}

func (s *store) activeCount(packageID int64) int {
	n := 0
	for _, r := range s.reservations {
		if r.PackageID == packageID && r.Status == models.ReservationActive {
			n++
		}
	}
	return n
}

func paginate[T any](items []T, page models.PageRequest) []T {
	from := page.Offset()
	if from >= len(items) {
		return nil
	}
	to := from + page.PageSize
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}

// --- fake repositories ---

type fakeUsers struct{ s *store }

func (f fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("users.Create"); err != nil {
		return nil, err
	}
	for _, x := range f.s.users {
		if x.UserName == u.UserName || x.Email == u.Email {
			return nil, fmt.Errorf("%w: users_key", common.ErrorConflict)
		}
	}
	u.ID = f.s.id()
	u.CreatedAt = fixedNow
	cp := *u
	f.s.users[u.ID] = &cp
	return u, nil
}

func (f fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("users.Get"); err != nil {
		return nil, err
	}
	for _, u := range f.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f fakeUsers) GetByUserName(_ context.Context, name string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.UserName == name })
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

type fakeTokens struct{ s *store }

func (f fakeTokens) Create(_ context.Context, t *models.RefreshToken) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.Create"); err != nil {
		return err
	}
	cp := *t
	f.s.tokens[t.Token] = &cp
	return nil
}

func (f fakeTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.Delete"); err != nil {
		return nil, err
	}
	t, ok := f.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.s.tokens, token)
	cp := *t
	return &cp, nil
}

func (f fakeTokens) DeleteExpired(_ context.Context, userID int64, before time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, t := range f.s.tokens {
		if t.UserID == userID && t.Expires.Before(before) {
			delete(f.s.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f fakeTokens) Delete(_ context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.Delete"); err != nil {
		return err
	}
	delete(f.s.tokens, token)
	return nil
}

type fakePackages struct{ s *store }

func (f fakePackages) Create(_ context.Context, p *models.Package) (*models.Package, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("packages.Create"); err != nil {
		return nil, err
	}
	p.ID = f.s.id()
	p.CreatedAt = fixedNow
	cp := *p
	f.s.packages[p.ID] = &cp
	return p, nil
}

func (f fakePackages) Update(_ context.Context, id int64, fields models.PackageFields) (*models.Package, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.packages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p.PackageFields = fields
	cp := *p
	return &cp, nil
}

func (f fakePackages) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.packages[id]; !ok {
		return common.ErrorNotFound
	}
	for _, r := range f.s.reservations {
		if r.PackageID == id {
			return fmt.Errorf("db error: reservations still reference package %d", id)
		}
	}
	delete(f.s.packages, id)
	return nil
}

func (f fakePackages) GetByID(_ context.Context, id int64) (*models.Package, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.packages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakePackages) GetDetail(_ context.Context, id int64) (*models.PackageDetail, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("packages.Get"); err != nil {
		return nil, err
	}
	p, ok := f.s.packages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.PackageDetail{Package: *p, AvailableSlots: p.MaxSlots - f.s.activeCount(id)}, nil
}

func (f fakePackages) GetByIDForUpdate(ctx context.Context, id int64) (*models.Package, error) {
	return f.GetByID(ctx, id)
}

func (f fakePackages) sorted(less func(a, b models.Package) bool, keep func(models.Package) bool) []models.Package {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Package
	for _, p := range f.s.packages {
		if keep == nil || keep(*p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byStart(a, b models.Package) bool {
	if a.StartDate.Equal(b.StartDate) {
		return a.ID < b.ID
	}
	return a.StartDate.Before(b.StartDate)
}

func (f fakePackages) List(_ context.Context, page models.PageRequest) ([]models.Package, int, error) {
	all := f.sorted(byStart, nil)
	return paginate(all, page), len(all), nil
}

func (f fakePackages) ListStartingFrom(_ context.Context, day time.Time) ([]models.Package, error) {
	return f.sorted(func(a, b models.Package) bool { return a.Destination < b.Destination },
		func(p models.Package) bool { return !p.StartDate.Before(day) }), nil
}

func (f fakePackages) CountStartingFrom(ctx context.Context, day time.Time) (int, error) {
	items, _ := f.ListStartingFrom(ctx, day)
	return len(items), nil
}

func (f fakePackages) Loads(_ context.Context) ([]models.PackageLoad, error) {
	if err := f.s.err("packages.Loads"); err != nil {
		return nil, err
	}
	all := f.sorted(byStart, nil)
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	loads := make([]models.PackageLoad, 0, len(all))
	for _, p := range all {
		loads = append(loads, models.PackageLoad{
			PackageID: p.ID, Destination: p.Destination,
			MinSlots: p.MinSlots, MaxSlots: p.MaxSlots,
			Active: f.s.activeCount(p.ID),
		})
	}
	return loads, nil
}

type fakeClients struct{ s *store }

func (f fakeClients) FindByEmail(_ context.Context, email string) (*models.Client, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.clients {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeClients) GetByID(_ context.Context, id int64) (*models.Client, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.clients[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeClients) InsertIfAbsent(_ context.Context, c *models.Client) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("clients.Insert"); err != nil {
		return false, err
	}
	for _, x := range f.s.clients {
		if x.Email == c.Email {
			return false, nil
		}
	}
	c.ID = f.s.id()
	c.CreatedAt = fixedNow
	cp := *c
	f.s.clients[c.ID] = &cp
	return true, nil
}

func (f fakeClients) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.clients[id]; !ok {
		return common.ErrorNotFound
	}
	for _, r := range f.s.reservations {
		if r.ClientID == id {
			return fmt.Errorf("db error: reservations still reference client %d", id)
		}
	}
	delete(f.s.clients, id)
	return nil
}

type fakeReservations struct{ s *store }

func (f fakeReservations) Create(_ context.Context, r *models.Reservation) (*models.Reservation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("reservations.Create"); err != nil {
		return nil, err
	}
	r.ID = f.s.id()
	cp := *r
	f.s.reservations[r.ID] = &cp
	return r, nil
}

func (f fakeReservations) GetByIDForUpdate(_ context.Context, id int64) (*models.Reservation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.reservations[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f fakeReservations) Cancel(_ context.Context, id int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("reservations.Cancel"); err != nil {
		return false, err
	}
	r, ok := f.s.reservations[id]
	if !ok || r.Status != models.ReservationActive {
		return false, nil
	}
	r.Status = models.ReservationCancelled
	return true, nil
}

func (f fakeReservations) CountActive(_ context.Context, packageID int64) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.activeCount(packageID), nil
}

func (f fakeReservations) CountAllActive(_ context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, r := range f.s.reservations {
		if r.Status == models.ReservationActive {
			n++
		}
	}
	return n, nil
}

func (f fakeReservations) ListActive(_ context.Context, page models.PageRequest) ([]models.ReservationView, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var all []models.ReservationView
	for _, r := range f.s.reservations {
		if r.Status != models.ReservationActive {
			continue
		}
		v := models.ReservationView{Reservation: *r}
		if c, ok := f.s.clients[r.ClientID]; ok {
			v.ClientName, v.ClientEmail = c.Name, c.Email
		}
		if p, ok := f.s.packages[r.PackageID]; ok {
			v.Destination, v.PackageStart = p.Destination, p.StartDate
		}
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ReservedAt.Equal(all[j].ReservedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].ReservedAt.After(all[j].ReservedAt)
	})
	return paginate(all, page), len(all), nil
}

func (f fakeReservations) deleteWhere(match func(*models.Reservation) bool) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for id, r := range f.s.reservations {
		if match(r) {
			delete(f.s.reservations, id)
			n++
		}
	}
	return n, nil
}

func (f fakeReservations) DeleteByPackage(_ context.Context, packageID int64) (int64, error) {
	return f.deleteWhere(func(r *models.Reservation) bool { return r.PackageID == packageID })
}

func (f fakeReservations) DeleteByClient(_ context.Context, clientID int64) (int64, error) {
	return f.deleteWhere(func(r *models.Reservation) bool { return r.ClientID == clientID })
}

type fakeAudit struct{ s *store }

func (f fakeAudit) Append(_ context.Context, e *models.AuditEntry) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("audit.Append"); err != nil {
		return err
	}
	e.ID = f.s.id()
	f.s.audit = append(f.s.audit, *e)
	return nil
}

func (f fakeAudit) newestFirst() []models.AuditEntry {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.AuditEntry, len(f.s.audit))
	for i, e := range f.s.audit {
		out[len(out)-1-i] = e
	}
	return out
}

func (f fakeAudit) List(_ context.Context, page models.PageRequest) ([]models.AuditEntry, int, error) {
	all := f.newestFirst()
	return paginate(all, page), len(all), nil
}

func (f fakeAudit) Each(_ context.Context, fn func(models.AuditEntry) error) error {
	if err := f.s.err("audit.Each"); err != nil {
		return err
	}
	f.s.mu.Lock()
	entries := append([]models.AuditEntry(nil), f.s.audit...)
	f.s.mu.Unlock()
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// fakeRepoManager vends repositories over one shared store regardless of
// the DBTX they are bound to.
type fakeRepoManager struct{ s *store }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return fakeUsers{m.s} }
func (m fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return fakeTokens{m.s}
}
func (m fakeRepoManager) Packages(dbx.DBTX) packagesrepo.Repository { return fakePackages{m.s} }
func (m fakeRepoManager) Clients(dbx.DBTX) clientsrepo.Repository   { return fakeClients{m.s} }
func (m fakeRepoManager) Reservations(dbx.DBTX) reservationsrepo.Repository {
	return fakeReservations{m.s}
}
func (m fakeRepoManager) Audit(dbx.DBTX) auditrepo.Repository { return fakeAudit{m.s} }

func nopLogger() logging.Logger { return logging.Nop() }

// plainHasher keeps tests fast; bcrypt is covered in the auth package.
type plainHasher struct{ err error }

func (h plainHasher) Hash(p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "plain:" + p, nil
}

func (h plainHasher) Verify(hash, p string) bool { return hash == "plain:"+p }

// fakeRevoker records revocations in memory.
type fakeRevoker struct {
	mu        sync.Mutex
	revoked   map[string]time.Time
	revokeErr error
	checkErr  error
}

func newFakeRevoker() *fakeRevoker { return &fakeRevoker{revoked: map[string]time.Time{}} }

func (r *fakeRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return r.revokeErr
	}
	r.revoked[jti] = until
	return nil
}

func (r *fakeRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkErr != nil {
		return false, r.checkErr
	}
	_, ok := r.revoked[jti]
	return ok, nil
}

func (r *fakeRevoker) Ping(context.Context) error { return nil }

func parisFields(minSlots, maxSlots int) models.PackageFields {
	return models.PackageFields{
		Destination: "Paris",
		StartDate:   fixedNow.AddDate(0, 1, 0),
		EndDate:     fixedNow.AddDate(0, 1, 7),
		Price:       1200,
		MinSlots:    minSlots,
		MaxSlots:    maxSlots,
		Category:    models.CategoryStandard,
	}
}

// clientsOnly swaps the clients repository of a fakeRepoManager.
type clientsOnly struct {
	fakeRepoManager
	clients clientsrepo.Repository
}

func (m clientsOnly) Clients(dbx.DBTX) clientsrepo.Repository { return m.clients }
