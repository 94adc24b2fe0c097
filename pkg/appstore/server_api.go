package appstore

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ProductionBaseURL = "https://api.storekit.itunes.apple.com"
	SandboxBaseURL    = "https://api.storekit-sandbox.itunes.apple.com"
)

type ServerAPIConfig struct {
	BaseURL    string
	IssuerID   string
	KeyID      string
	BundleID   string
	PrivateKey []byte // PEM .p8 key
	// RootCAs, when set, requires the x5c chain of every signed transaction to end in one of them.
	RootCAs *x509.CertPool
}

// ServerAPIVerifier looks transactions up through the App Store Server API
// and verifies the signed payload it returns.
type ServerAPIVerifier struct {
	cfg        ServerAPIConfig
	signingKey *ecdsa.PrivateKey
	client     *http.Client
	now        func() time.Time
}

func NewServerAPIVerifier(cfg ServerAPIConfig) (*ServerAPIVerifier, error) {
	if cfg.IssuerID == "" || cfg.KeyID == "" || cfg.BundleID == "" {
		return nil, errors.New("appstore: issuer id, key id and bundle id are required")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("appstore: parse private key: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ProductionBaseURL
	}
	return &ServerAPIVerifier{
		cfg:        cfg,
		signingKey: key,
		client:     &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}, nil
}

// LoadRootCAs reads a PEM or DER root certificate file into a pool.
func LoadRootCAs(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if pool.AppendCertsFromPEM(raw) {
		return pool, nil
	}
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, fmt.Errorf("appstore: parse root CA: %w", err)
	}
	pool.AddCert(cert)
	return pool, nil
}

func (v *ServerAPIVerifier) Verify(ctx context.Context, claim Claim) (*Transaction, error) {
	token, err := v.authToken()
	if err != nil {
		return nil, err
	}

	endpoint := v.cfg.BaseURL + "/inApps/v1/transactions/" + url.PathEscape(claim.TransactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("appstore: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("appstore: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("appstore: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTransactionNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("appstore: status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		SignedTransactionInfo string `json:"signedTransactionInfo"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("appstore: decode response: %w", err)
	}

	tx, err := v.ParseSignedTransaction(payload.SignedTransactionInfo)
	if err != nil {
		return nil, err
	}
	if tx.BundleID != v.cfg.BundleID {
		return nil, fmt.Errorf("%w: bundle id %q", ErrInvalidSignature, tx.BundleID)
	}
	return tx, nil
}

// authToken signs the short-lived ES256 token the Server API expects.
func (v *ServerAPIVerifier) authToken() (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		"iss": v.cfg.IssuerID,
		"iat": now.Unix(),
		"exp": now.Add(20 * time.Minute).Unix(),
		"aud": "appstoreconnect-v1",
		"bid": v.cfg.BundleID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = v.cfg.KeyID
	signed, err := token.SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("appstore: sign auth token: %w", err)
	}
	return signed, nil
}

type signedTransactionClaims struct {
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	BundleID              string `json:"bundleId"`
	ProductID             string `json:"productId"`
	Environment           string `json:"environment"`
	PurchaseDate          int64  `json:"purchaseDate"`
	ExpiresDate           int64  `json:"expiresDate,omitempty"`
	RevocationDate        int64  `json:"revocationDate,omitempty"`
	jwt.RegisteredClaims
}

// ParseSignedTransaction verifies a JWS transaction against the leaf certificate of its x5c chain.
func (v *ServerAPIVerifier) ParseSignedTransaction(signed string) (*Transaction, error) {
	claims := &signedTransactionClaims{}
	_, err := jwt.ParseWithClaims(signed, claims, v.keyFromChain, jwt.WithValidMethods([]string{"ES256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	tx := &Transaction{
		TransactionID:         claims.TransactionID,
		OriginalTransactionID: claims.OriginalTransactionID,
		ProductID:             claims.ProductID,
		BundleID:              claims.BundleID,
		Environment:           claims.Environment,
		PurchaseDate:          time.UnixMilli(claims.PurchaseDate).UTC(),
		ExpiresDate:           millisPtr(claims.ExpiresDate),
		RevocationDate:        millisPtr(claims.RevocationDate),
		SignedPayload:         signed,
	}
	return tx, nil
}

func (v *ServerAPIVerifier) keyFromChain(token *jwt.Token) (interface{}, error) {
	rawChain, ok := token.Header["x5c"].([]interface{})
	if !ok || len(rawChain) == 0 {
		return nil, errors.New("missing x5c header")
	}

	certs := make([]*x509.Certificate, 0, len(rawChain))
	for _, raw := range rawChain {
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("malformed x5c entry")
		}
		der, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode x5c: %w", err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("parse x5c: %w", err)
		}
		certs = append(certs, cert)
	}

	leaf := certs[0]
	if v.cfg.RootCAs != nil {
		intermediates := x509.NewCertPool()
		for _, c := range certs[1:] {
			intermediates.AddCert(c)
		}
		if _, err := leaf.Verify(x509.VerifyOptions{
			Roots:         v.cfg.RootCAs,
			Intermediates: intermediates,
			CurrentTime:   v.now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}); err != nil {
			return nil, fmt.Errorf("verify chain: %w", err)
		}
	}

	pub, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("leaf key is not ECDSA")
	}
	return pub, nil
}

func millisPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
