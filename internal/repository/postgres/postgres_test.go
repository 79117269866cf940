package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/domain"
)

const (
	campaignID = "8b3c1f7e-2a1d-4c5e-9f0a-1b2c3d4e5f60"
	userID     = "0f1e2d3c-4b5a-6978-8695-a4b3c2d1e0f9"
	contactID  = "11111111-2222-3333-4444-555555555555"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestCampaignRepoGet(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, user_id, list_id`).
		WithArgs(campaignID, userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "list_id", "subject", "body", "status", "recipients_count", "sent_at", "created_at", "updated_at",
		}).AddRow(campaignID, userID, "list-1", "Hello", "<p>x</p>", "draft", 0, nil, now, now))

	c, err := NewCampaignRepo(db).Get(context.Background(), userID, campaignID)
	require.NoError(t, err)
	assert.Equal(t, "list-1", c.ListID)
	assert.Equal(t, domain.CampaignDraft, c.Status)
	assert.Nil(t, c.SentAt)
}

func TestCampaignRepoGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, user_id, list_id`).
		WithArgs(campaignID, userID).
		WillReturnError(sql.ErrNoRows)

	_, err := NewCampaignRepo(db).Get(context.Background(), userID, campaignID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = NewCampaignRepo(db).Get(context.Background(), userID, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCampaignRepoMarkSent(t *testing.T) {
	db, mock := newMock(t)
	sentAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(`UPDATE campaigns`).
		WithArgs(campaignID, userID, domain.CampaignSent, sentAt, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE campaigns`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCampaignRepo(db)
	require.NoError(t, repo.MarkSent(context.Background(), userID, campaignID, sentAt, 2))
	assert.ErrorIs(t, repo.MarkSent(context.Background(), userID, campaignID, sentAt, 2), apperr.ErrNotFound)
}

func TestContactRepoSubscribed(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM contacts`).
		WithArgs(userID, "list-1", domain.ContactSubscribed).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).
			AddRow("r1", "a@x.io", "Ann").
			AddRow("r2", "b@x.io", ""))

	got, err := NewContactRepo(db).Subscribed(context.Background(), userID, "list-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Recipient{
		{ID: "r1", Email: "a@x.io", Name: "Ann"},
		{ID: "r2", Email: "b@x.io"},
	}, got)

	got, err = NewContactRepo(db).Subscribed(context.Background(), userID, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProfileRepoSenderProfile(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM profiles`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_name", "sender_email", "custom_domain", "domain_verified"}).
			AddRow(userID, "Acme", "news@acme.io", "mail.acme.io", true))
	mock.ExpectQuery(`FROM profiles`).
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)

	repo := NewProfileRepo(db)
	p, err := repo.SenderProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "news@mail.acme.io", p.FromAddress())

	p, err = repo.SenderProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestIdentityRepoRoundTrip(t *testing.T) {
	db, mock := newMock(t)
	repo := NewIdentityRepo(db)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs(userID, "acme.io", false, `{"tokens":["a","b"],"identityType":"DOMAIN"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(context.Background(), domain.DomainIdentity{
		UserID: userID, Domain: "acme.io",
		Tokens: &domain.IdentityTokens{Tokens: []string{"a", "b"}, IdentityType: "DOMAIN"},
	}))

	mock.ExpectQuery(`SELECT custom_domain`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"custom_domain", "domain_verified", "domain_verification_token"}).
			AddRow("acme.io", true, []byte(`{"tokens":["a","b"],"identityType":"DOMAIN"}`)))
	id, err := repo.Get(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.True(t, id.Verified)
	assert.Equal(t, []string{"a", "b"}, id.Tokens.Tokens)

	mock.ExpectQuery(`SELECT custom_domain`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"custom_domain", "domain_verified", "domain_verification_token"}).
			AddRow(nil, false, nil))
	id, err = repo.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, id)

	mock.ExpectExec(`SET custom_domain = NULL`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Clear(context.Background(), userID))
}

func TestIdentityRepoSaveWithoutProfile(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs(userID, "acme.io", false, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewIdentityRepo(db).Save(context.Background(), domain.DomainIdentity{UserID: userID, Domain: "acme.io"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAnalyticsRepoRecord(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepo(db)

	mock.ExpectExec(`INSERT INTO email_analytics`).
		WithArgs("e1", campaignID, contactID, "click", `{"url":"https://x.io"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Record(context.Background(), domain.AnalyticsEvent{
		ID: "e1", CampaignID: campaignID, RecipientID: contactID, EventType: domain.EventClick,
		Metadata: map[string]string{"url": "https://x.io"},
	}))

	mock.ExpectExec(`INSERT INTO email_analytics`).
		WithArgs("e2", campaignID, nil, "open", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Record(context.Background(), domain.AnalyticsEvent{
		ID: "e2", CampaignID: campaignID, RecipientID: "garbage", EventType: domain.EventOpen,
	}))

	assert.Error(t, repo.Record(context.Background(), domain.AnalyticsEvent{CampaignID: "X", EventType: domain.EventOpen}))
}

func TestWebhookRepoListActive(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM webhooks`).
		WithArgs(userID, "campaign.sent").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "url", "secret", "events", "active"}).
			AddRow("w1", userID, "https://hook.io", "s", "{campaign.sent,contact.created}", true))

	subs, err := NewWebhookRepo(db).ListActive(context.Background(), userID, "campaign.sent")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"campaign.sent", "contact.created"}, subs[0].Events)
	assert.True(t, subs[0].Subscribes("campaign.sent"))
}

func TestWebhookLogRepoAppend(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO webhook_logs`).
		WithArgs("l1", "w1", "e", `{"event":"e"}`, 2, 500, "oops", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO webhook_logs`).
		WillReturnError(errors.New("db down"))

	repo := NewWebhookLogRepo(db)
	entry := domain.WebhookDeliveryLog{
		ID: "l1", WebhookID: "w1", Event: "e", Payload: []byte(`{"event":"e"}`),
		Attempt: 2, ResponseStatus: 500, ResponseBody: "oops",
	}
	require.NoError(t, repo.Append(context.Background(), entry))
	assert.Error(t, repo.Append(context.Background(), entry))
}
