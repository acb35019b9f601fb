package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpcgo "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeConn struct {
	tokens map[string]string
	err    error
	method string
}

func (f *fakeConn) Invoke(_ context.Context, method string, args any, reply any, _ ...grpcgo.CallOption) error {
	f.method = method
	if f.err != nil {
		return f.err
	}
	in := args.(*wrapperspb.StringValue)
	out := reply.(*wrapperspb.StringValue)
	out.Value = f.tokens[in.GetValue()]
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpcgo.StreamDesc, string, ...grpcgo.CallOption) (grpcgo.ClientStream, error) {
	return nil, errors.New("not supported")
}

func TestValidateToken(t *testing.T) {
	conn := &fakeConn{tokens: map[string]string{"good": "u1"}}
	client := NewAuthClient(conn)

	userID, err := client.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "/auth.AuthService/ValidateToken", conn.method)

	_, err = client.ValidateToken(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenTransportError(t *testing.T) {
	client := NewAuthClient(&fakeConn{err: errors.New("unavailable")})

	_, err := client.ValidateToken(context.Background(), "good")
	assert.EqualError(t, err, "unavailable")
}

func TestDevValidator(t *testing.T) {
	userID, err := DevValidator{}.ValidateToken(context.Background(), "dev-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	_, err = DevValidator{}.ValidateToken(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = DevValidator{}.ValidateToken(context.Background(), "dev-")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
