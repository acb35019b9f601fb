package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpcgo "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"ping-me/internal/observability"
)

const validateTokenMethod = "/auth.AuthService/ValidateToken"

var ErrInvalidToken = errors.New("invalid token")

// AuthClient asks the identity service which user a bearer token belongs to.
type AuthClient struct {
	conn grpcgo.ClientConnInterface
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(conn grpcgo.ClientConnInterface) *AuthClient {
	return &AuthClient{conn: conn}
}

// Dial opens an instrumented, insecure connection to the identity service.
func Dial(addr string) (*grpcgo.ClientConn, error) {
	conn, err := grpcgo.NewClient(addr,
		grpcgo.WithTransportCredentials(insecure.NewCredentials()),
		grpcgo.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpcgo.WithUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial auth grpc %s: %w", addr, err)
	}
	return conn, nil
}

// ValidateToken verifies the token and returns the authenticated user id.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (string, error) {
	resp := &wrapperspb.StringValue{}
	if err := a.conn.Invoke(ctx, validateTokenMethod, wrapperspb.String(token), resp); err != nil {
		return "", err
	}
	if resp.GetValue() == "" {
		return "", ErrInvalidToken
	}
	return resp.GetValue(), nil
}

// DevValidator treats "dev-<user id>" tokens as valid. Local runs only.
type DevValidator struct{}

func (DevValidator) ValidateToken(_ context.Context, token string) (string, error) {
	userID, ok := strings.CutPrefix(token, "dev-")
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
