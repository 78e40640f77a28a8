package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"fulfillment-api/internal/marketplace"
	"fulfillment-api/pkg/logging"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	svc := &WebhookService{secret: "topsecret", logger: logging.Nop{}}
	payload := []byte(`{"id":"abc","action":"ChangePlan"}`)

	assert.True(t, svc.VerifySignature(payload, sign("topsecret", payload)))
	assert.False(t, svc.VerifySignature(payload, sign("wrong", payload)))
	assert.False(t, svc.VerifySignature(payload, ""))
	assert.False(t, svc.VerifySignature([]byte("tampered"), sign("topsecret", payload)))
}

func TestVerifySignatureNoSecretConfigured(t *testing.T) {
	svc := &WebhookService{logger: logging.Nop{}}
	assert.True(t, svc.VerifySignature([]byte("anything"), ""))
}

func TestMarketplaceAck(t *testing.T) {
	assert.Equal(t, marketplace.UpdateStatusSuccess, marketplaceAck(true))
	assert.Equal(t, marketplace.UpdateStatusFailure, marketplaceAck(false))
}
