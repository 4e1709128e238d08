package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ekamanam/studysync/internal/common"
)

// TokenCredentials is an aws.CredentialsProvider over credentials handed in
// by the auth subsystem. When the session token is a JWT its exp claim is
// checked locally, so an expired credential fails with common.ErrUnauthorized
// before any request is sent. Refreshing is the auth subsystem's job.
type TokenCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	now func() time.Time
}

func NewTokenCredentials(accessKeyID, secretAccessKey, sessionToken string) *TokenCredentials {
	return &TokenCredentials{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		SessionToken:    sessionToken,
		now:             time.Now,
	}
}

func (c *TokenCredentials) Retrieve(ctx context.Context) (aws.Credentials, error) {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return aws.Credentials{}, fmt.Errorf("%w: access key not configured", common.ErrUnauthorized)
	}

	creds, err := credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken).Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	if exp, ok := tokenExpiry(c.SessionToken); ok {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		if !exp.After(now()) {
			return aws.Credentials{}, fmt.Errorf("%w: session token expired at %s", common.ErrUnauthorized, exp.Format(time.RFC3339))
		}
		creds.CanExpire = true
		creds.Expires = exp
	}

	return creds, nil
}

// tokenExpiry extracts the exp claim of a JWT without verifying it; the
// signature is checked by the storage service.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
