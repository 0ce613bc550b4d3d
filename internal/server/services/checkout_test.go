package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/auth"
	"github.com/dmitrijs2005/storekeeper/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	key     string
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignGet(_ context.Context, key string, expires time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.expires = key, expires
	return "https://s3.example/" + key + "?X-Amz-Signature=abc", nil
}

func newCheckoutService(env *testEnv, p Presigner) *CheckoutService {
	signer := auth.NewDeliverySigner(env.cfg.DeliverySigningKey)
	return NewCheckoutService(env.rm, env.cfg, signer, p, env.audit, env.metrics, logging.Discard())
}

var deliveryURLPattern = regexp.MustCompile(`^https://shop\.example/api/download/([0-9a-f-]{36})\?token=[A-Za-z0-9._-]+$`)

func TestCheckoutService_CreatePresold(t *testing.T) {
	freezeClock(t)
	env := newTestEnv(t)
	svc := newCheckoutService(env, &fakePresigner{})
	ctx := context.Background()

	sess, err := svc.Create(ctx, CheckoutInput{
		ItemRef:  "PWS-0001",
		BuyerRef: "buyer@example.com",
		Manifest: json.RawMessage(`{"format":"pdf"}`),
		Presold:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, sess.Delivery)
	assert.Equal(t, models.SessionDelivered, sess.Status)
	require.NotNil(t, sess.DeliveredAt)

	m := deliveryURLPattern.FindStringSubmatch(sess.Delivery.URL)
	require.NotNil(t, m, "unexpected url %s", sess.Delivery.URL)
	assert.Equal(t, sess.SessionID, m[1])
	assert.Equal(t, "PWS-0001", sess.Delivery.ItemRef)

	resolved, err := svc.Resolve(ctx, sess.SessionID)
	require.NoError(t, err)

	created, _ := json.Marshal(sess.Delivery)
	again, _ := json.Marshal(resolved.Delivery)
	assert.Equal(t, string(created), string(again))

	assert.Equal(t, []string{models.ActionDeliveryIssued, models.ActionCheckoutCreated}, actions(env.auditLog(t)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.DeliveriesIssuedTotal))
}

func TestCheckoutService_LazyDelivery(t *testing.T) {
	freezeClock(t)
	env := newTestEnv(t)
	svc := newCheckoutService(env, &fakePresigner{})
	ctx := context.Background()

	sess, err := svc.Create(ctx, CheckoutInput{ItemRef: "PWS-0002"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, sess.Status)
	assert.Nil(t, sess.Delivery)

	first, err := svc.Resolve(ctx, sess.SessionID)
	require.NoError(t, err)
	require.NotNil(t, first.Delivery)

	second, err := svc.Resolve(ctx, sess.SessionID)
	require.NoError(t, err)
	if diff := cmp.Diff(first.Delivery, second.Delivery); diff != "" {
		t.Fatalf("delivery changed between calls (-first +second):\n%s", diff)
	}

	stored, err := env.rm.Sessions().FindSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionDelivered, stored.Status)
	assert.Equal(t, first.Delivery.URL, stored.Delivery.URL)

	assert.Equal(t, []string{models.ActionDeliveryIssued, models.ActionCheckoutCreated}, actions(env.auditLog(t)))
}

func TestCheckoutService_ResolveAdoptsClaimedDelivery(t *testing.T) {
	env := newTestEnv(t)
	svc := newCheckoutService(env, &fakePresigner{})
	ctx := context.Background()

	sess, err := svc.Create(ctx, CheckoutInput{ItemRef: "A"})
	require.NoError(t, err)

	// another request claimed the delivery but has not updated the session yet
	winner := models.Delivery{URL: "https://shop.example/winner", ItemRef: "A", IssuedAt: testNow}
	_, won, err := env.rm.Sessions().ClaimDelivery(ctx, sess.SessionID, winner, time.Hour)
	require.NoError(t, err)
	require.True(t, won)

	got, err := svc.Resolve(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, winner.URL, got.Delivery.URL)
	assert.NotContains(t, actions(env.auditLog(t)), models.ActionDeliveryIssued)
}

func TestCheckoutService_DeliveryURLDeterministic(t *testing.T) {
	env := newTestEnv(t)
	svc := newCheckoutService(env, &fakePresigner{})

	a, err := svc.DeliveryURL("11111111-1111-4111-8111-111111111111", "X")
	require.NoError(t, err)
	b, err := svc.DeliveryURL("11111111-1111-4111-8111-111111111111", "X")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, deliveryURLPattern, a)
}

func TestCheckoutService_Errors(t *testing.T) {
	env := newTestEnv(t)
	svc := newCheckoutService(env, &fakePresigner{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CheckoutInput{ItemRef: "   ", Presold: true})
	require.ErrorIs(t, err, common.ErrBadRequest)

	_, err = svc.Resolve(ctx, "")
	require.ErrorIs(t, err, common.ErrBadRequest)

	_, err = svc.Resolve(ctx, "no-such-session")
	require.ErrorIs(t, err, common.ErrNotFound)

	assert.Empty(t, env.auditLog(t))
}

func TestCheckoutService_Download(t *testing.T) {
	env := newTestEnv(t)
	presigner := &fakePresigner{}
	svc := newCheckoutService(env, presigner)
	signer := auth.NewDeliverySigner(env.cfg.DeliverySigningKey)
	ctx := context.Background()

	delivered, err := svc.Create(ctx, CheckoutInput{ItemRef: "PWS-0001", Presold: true})
	require.NoError(t, err)
	pending, err := svc.Create(ctx, CheckoutInput{ItemRef: "PWS-0003"})
	require.NoError(t, err)

	token, err := signer.Sign(delivered.SessionID, "PWS-0001")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		u, err := svc.Download(ctx, delivered.SessionID, token)
		require.NoError(t, err)
		assert.Contains(t, u, "items/PWS-0001")
		assert.Equal(t, "items/PWS-0001", presigner.key)
		assert.Equal(t, env.cfg.DownloadURLValidity, presigner.expires)
	})

	t.Run("token for another session", func(t *testing.T) {
		_, err := svc.Download(ctx, pending.SessionID, token)
		require.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := svc.Download(ctx, delivered.SessionID, "")
		require.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("not delivered", func(t *testing.T) {
		tok, err := signer.Sign(pending.SessionID, "PWS-0003")
		require.NoError(t, err)
		_, err = svc.Download(ctx, pending.SessionID, tok)
		require.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("item mismatch", func(t *testing.T) {
		tok, err := signer.Sign(delivered.SessionID, "OTHER")
		require.NoError(t, err)
		_, err = svc.Download(ctx, delivered.SessionID, tok)
		require.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("presign failure", func(t *testing.T) {
		presigner.err = errors.New("s3 down")
		defer func() { presigner.err = nil }()
		_, err := svc.Download(ctx, delivered.SessionID, token)
		require.ErrorContains(t, err, "presign download")
	})
}
