package security

import (
	"crypto/rsa"
	"strings"
	"time"

	cfsign "github.com/aws/aws-sdk-go-v2/feature/cloudfront/sign"
)

// URLSigner turns an object key into a time-limited CDN URL.
type URLSigner interface {
	Sign(objectKey string) (string, error)
}

// CloudFrontSigner signs canned-policy CloudFront URLs for objects under domain.
type CloudFrontSigner struct {
	domain string
	ttl    time.Duration
	signer *cfsign.URLSigner
	now    func() time.Time
}

// NewCloudFrontSigner returns a signer for domain (e.g. https://d111.cloudfront.net) using the
// CloudFront key pair id and its RSA private key.
func NewCloudFrontSigner(domain, keyID string, key *rsa.PrivateKey, ttl time.Duration) *CloudFrontSigner {
	return &CloudFrontSigner{
		domain: strings.TrimSuffix(domain, "/"),
		ttl:    ttl,
		signer: cfsign.NewURLSigner(keyID, key),
		now:    time.Now,
	}
}

// Sign returns the signed URL for objectKey. An empty key yields an empty URL.
func (s *CloudFrontSigner) Sign(objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	raw := s.domain + "/" + strings.TrimPrefix(objectKey, "/")
	return s.signer.Sign(raw, s.now().Add(s.ttl))
}

// PassthroughSigner returns object keys unchanged, prefixed with an optional base URL.
// Used when no CloudFront key is configured.
type PassthroughSigner struct {
	BaseURL string
}

// Sign implements URLSigner.
func (s PassthroughSigner) Sign(objectKey string) (string, error) {
	if objectKey == "" || s.BaseURL == "" {
		return objectKey, nil
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(objectKey, "/"), nil
}
