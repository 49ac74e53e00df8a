package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
)

// RDS tokens live 15 minutes; refresh a minute early.
const TokenValidity = 14 * time.Minute

// IAMTokenProvider hands out RDS auth tokens and reuses one until it is
// close to expiry.
type IAMTokenProvider struct {
	build func(ctx context.Context) (string, error)
	now   func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewIAMTokenProvider(ctx context.Context, host string, port int, region, user string) (*IAMTokenProvider, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	endpoint := fmt.Sprintf("%s:%d", host, port)

	return &IAMTokenProvider{
		build: func(ctx context.Context) (string, error) {
			return auth.BuildAuthToken(ctx, endpoint, region, user, awsCfg.Credentials)
		},
		now: time.Now,
	}, nil
}

func (p *IAMTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.expires) {
		return p.token, nil
	}
	token, err := p.build(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to build RDS auth token: %w", err)
	}
	p.token = token
	p.expires = p.now().Add(TokenValidity)
	return token, nil
}
