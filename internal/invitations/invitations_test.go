package invitations

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aldoetobex/lawmatch-backend/internal/auth"
	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/database/dbtest"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

/* ===== helpers ===== */

func injectAuth(userID uuid.UUID, role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", userID.String())
		c.Locals("role", string(role))
		return c.Next()
	}
}

// newTestApp registers /invitations/received before /invitations/:id.
func newTestApp(h *Handler, userID uuid.UUID, role models.Role) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(injectAuth(userID, role))

	app.Post("/api/cases/:id/invitations", h.Invite)
	app.Get("/api/invitations/received", h.ListReceived)
	app.Get("/api/invitations/:id", h.Get)
	app.Patch("/api/invitations/:id", h.Respond)
	return app
}

func invite(t *testing.T, app *fiber.App, caseID uuid.UUID, ids ...uuid.UUID) (int, InviteResult) {
	t.Helper()
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = `"` + id.String() + `"`
	}
	req := httptest.NewRequest("POST", "/api/cases/"+caseID.String()+"/invitations",
		strings.NewReader(`{"lawyer_ids":[`+strings.Join(raw, ",")+`]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out InviteResult
	if resp.StatusCode == fiber.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

/* ===== tests ===== */

func Test_Client_Invite_SkipsDuplicates(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger(db, zap.NewNop())
	client := dbtest.User(t, db, models.RoleClient)
	lawyer := dbtest.User(t, db, models.RoleLawyer, "property")
	other := dbtest.User(t, db, models.RoleLawyer, "property")
	cs := dbtest.Case(t, db, client.ID, models.CasePending)
	app := newTestApp(NewHandler(ledger), client.ID, models.RoleClient)

	code, res := invite(t, app, cs.ID, lawyer.ID, lawyer.ID)
	require.Equal(t, 201, code)
	assert.Equal(t, 1, res.Invited)
	assert.Equal(t, "Successfully invited 1 lawyer(s)", res.Message)

	code, res = invite(t, app, cs.ID, lawyer.ID, other.ID)
	require.Equal(t, 201, code)
	assert.Equal(t, 1, res.Invited)
	assert.Equal(t, 1, res.Skipped)

	var got models.Case
	require.NoError(t, db.First(&got, "id = ?", cs.ID).Error)
	assert.Equal(t, 2, got.InvitationCount)

	var n int64
	db.Model(&models.Invitation{}).Where("case_id = ?", cs.ID).Count(&n)
	assert.EqualValues(t, 2, n)
}

func Test_Client_Invite_Rejections(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger(db, zap.NewNop())
	client := dbtest.User(t, db, models.RoleClient)
	lawyer := dbtest.User(t, db, models.RoleLawyer, "property")
	anotherClient := dbtest.User(t, db, models.RoleClient)
	pending := dbtest.User(t, db, models.RoleLawyer)
	require.NoError(t, db.Model(&pending).Update("account_status", models.AccountPending).Error)
	cs := dbtest.Case(t, db, client.ID, models.CasePending)
	closed := dbtest.Case(t, db, client.ID, models.CaseCompleted)

	app := newTestApp(NewHandler(ledger), client.ID, models.RoleClient)

	code, _ := invite(t, app, uuid.New(), lawyer.ID)
	assert.Equal(t, 404, code)
	code, _ = invite(t, app, closed.ID, lawyer.ID)
	assert.Equal(t, 400, code)
	// Unverified lawyers and clients are not invitable.
	code, _ = invite(t, app, cs.ID, pending.ID, anotherClient.ID)
	assert.Equal(t, 400, code)

	stranger := newTestApp(NewHandler(ledger), anotherClient.ID, models.RoleClient)
	code, _ = invite(t, stranger, cs.ID, lawyer.ID)
	assert.Equal(t, 403, code)

	req := httptest.NewRequest("POST", "/api/cases/"+cs.ID.String()+"/invitations", strings.NewReader(`{"lawyer_ids":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func Test_Lawyer_Respond_Terminal(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger(db, zap.NewNop())
	ctx := context.Background()
	client := dbtest.User(t, db, models.RoleClient)
	lawyer := dbtest.User(t, db, models.RoleLawyer, "property")
	cs := dbtest.Case(t, db, client.ID, models.CasePending)
	_, err := ledger.Invite(ctx, cs.ID, []uuid.UUID{lawyer.ID}, client.ID)
	require.NoError(t, err)

	var inv models.Invitation
	require.NoError(t, db.Where("case_id = ?", cs.ID).First(&inv).Error)

	_, err = ledger.Respond(ctx, inv.ID, lawyer.ID, "maybe")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	_, err = ledger.Respond(ctx, inv.ID, uuid.New(), models.InvitationAccepted)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := ledger.Respond(ctx, inv.ID, lawyer.ID, models.InvitationViewed)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationViewed, got.Status)
	assert.NotNil(t, got.ViewedAt)

	got, err = ledger.Respond(ctx, inv.ID, lawyer.ID, models.InvitationDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, got.Status)
	assert.NotNil(t, got.RespondedAt)

	_, err = ledger.Respond(ctx, inv.ID, lawyer.ID, models.InvitationAccepted)
	require.Error(t, err)
	assert.Equal(t, "Invitation has already been responded to", err.Error())
}

func Test_Lawyer_Respond_ConcurrentSingleWinner(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger(db, zap.NewNop())
	ctx := context.Background()
	client := dbtest.User(t, db, models.RoleClient)
	lawyer := dbtest.User(t, db, models.RoleLawyer, "property")
	cs := dbtest.Case(t, db, client.ID, models.CasePending)
	_, err := ledger.Invite(ctx, cs.ID, []uuid.UUID{lawyer.ID}, client.ID)
	require.NoError(t, err)

	var inv models.Invitation
	require.NoError(t, db.Where("case_id = ?", cs.ID).First(&inv).Error)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, st := range []models.InvitationStatus{models.InvitationAccepted, models.InvitationDeclined, models.InvitationAccepted, models.InvitationDeclined} {
		wg.Add(1)
		go func(st models.InvitationStatus) {
			defer wg.Done()
			if _, err := ledger.Respond(ctx, inv.ID, lawyer.ID, st); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(st)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func Test_Lawyer_ReceivedAndGet(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger(db, zap.NewNop())
	ctx := context.Background()
	client := dbtest.User(t, db, models.RoleClient)
	lawyer := dbtest.User(t, db, models.RoleLawyer, "property")
	cs := dbtest.Case(t, db, client.ID, models.CasePending)
	_, err := ledger.Invite(ctx, cs.ID, []uuid.UUID{lawyer.ID}, client.ID)
	require.NoError(t, err)

	app := newTestApp(NewHandler(ledger), lawyer.ID, models.RoleLawyer)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/invitations/received?status=pending", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var page models.Page[ReceivedItem]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	item := page.Items[0]
	assert.Equal(t, cs.ID, item.Case.ID)
	assert.NotContains(t, item.Case.Preview, "owner@example.com")
	assert.Contains(t, item.Case.Preview, "[redacted email]")

	// An unknown filter lists everything.
	resp, err = app.Test(httptest.NewRequest("GET", "/api/invitations/received?status=bogus", nil))
	require.NoError(t, err)
	page = models.Page[ReceivedItem]{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Items, 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/invitations/"+item.ID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var one ReceivedItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&one))
	assert.Equal(t, models.InvitationViewed, one.Status)

	// Someone else's invitation is not found.
	other := newTestApp(NewHandler(ledger), uuid.New(), models.RoleLawyer)
	resp, err = other.Test(httptest.NewRequest("GET", "/api/invitations/"+item.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	req := httptest.NewRequest("PATCH", "/api/invitations/"+item.ID.String(), strings.NewReader(`{"status":"ACCEPTED"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func Test_MarkViewedFor(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger(db, zap.NewNop())
	ctx := context.Background()
	client := dbtest.User(t, db, models.RoleClient)
	lawyer := dbtest.User(t, db, models.RoleLawyer, "property")
	cs := dbtest.Case(t, db, client.ID, models.CasePending)

	// No invitation: nothing to do.
	require.NoError(t, ledger.MarkViewedFor(ctx, cs.ID, lawyer.ID))

	_, err := ledger.Invite(ctx, cs.ID, []uuid.UUID{lawyer.ID}, client.ID)
	require.NoError(t, err)
	require.NoError(t, ledger.MarkViewedFor(ctx, cs.ID, lawyer.ID))

	var inv models.Invitation
	require.NoError(t, db.Where("case_id = ?", cs.ID).First(&inv).Error)
	assert.Equal(t, models.InvitationViewed, inv.Status)
	require.NotNil(t, inv.ViewedAt)

	// A declined invitation stays declined.
	_, err = ledger.Respond(ctx, inv.ID, lawyer.ID, models.InvitationDeclined)
	require.NoError(t, err)
	require.NoError(t, ledger.MarkViewedFor(ctx, cs.ID, lawyer.ID))
	require.NoError(t, db.First(&inv, "id = ?", inv.ID).Error)
	assert.Equal(t, models.InvitationDeclined, inv.Status)
}
