package grpc

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func authCases(validToken string) []struct {
	name           string
	ctx            context.Context
	handlerCalled  bool
	expectedCode   codes.Code
	expectedErrMsg string
} {
	return []struct {
		name           string
		ctx            context.Context
		handlerCalled  bool
		expectedCode   codes.Code
		expectedErrMsg string
	}{
		{
			name: "Valid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", validToken),
			),
			handlerCalled:  true,
			expectedCode:   codes.OK,
			expectedErrMsg: "",
		},
		{
			name: "Invalid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", "wrong-token"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "invalid token",
		},
		{
			name:           "Missing Token",
			ctx:            context.Background(),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing metadata",
		},
		{
			name: "Missing Authorization Header",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("other-header", "value"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing authorization header",
		},
	}
}

func TestAuthInterceptor(t *testing.T) {
	validToken := "test-token-123"
	interceptor := AuthInterceptor(validToken)

	for _, tt := range authCases(validToken) {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				handlerCalled = true
				return "success", nil
			}

			info := &grpc.UnaryServerInfo{
				FullMethod: ProcessTaxReportMethod,
			}

			resp, err := interceptor(tt.ctx, "test-request", info, handler)

			assert.Equal(t, tt.handlerCalled, handlerCalled, "handler called status mismatch")

			if tt.expectedCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "success", resp)
			} else {
				assert.Error(t, err)
				st, ok := status.FromError(err)
				assert.True(t, ok, "error should be a gRPC status")
				assert.Equal(t, tt.expectedCode, st.Code())
				assert.Contains(t, st.Message(), tt.expectedErrMsg)
			}
		})
	}
}

// fakeServerStream carries only a context
type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestStreamAuthInterceptor(t *testing.T) {
	validToken := "test-token-123"
	interceptor := StreamAuthInterceptor(validToken)

	for _, tt := range authCases(validToken) {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := func(srv interface{}, ss grpc.ServerStream) error {
				handlerCalled = true
				return nil
			}

			info := &grpc.StreamServerInfo{FullMethod: WatchSubmissionMethod, IsServerStream: true}

			err := interceptor(nil, &fakeServerStream{ctx: tt.ctx}, info, handler)

			assert.Equal(t, tt.handlerCalled, handlerCalled, "handler called status mismatch")
			assert.Equal(t, tt.expectedCode, status.Code(err))
			if tt.expectedCode != codes.OK {
				assert.Contains(t, status.Convert(err).Message(), tt.expectedErrMsg)
			}
		})
	}
}

func TestLoggingInterceptor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantCode  string
	}{
		{"ok", nil, "level=INFO", "code=OK"},
		{"not found", status.Error(codes.NotFound, "sell transaction not found"), "level=WARN", "code=NotFound"},
		{"internal", status.Error(codes.Internal, "boom"), "level=ERROR", "code=Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			interceptor := LoggingInterceptor(logger)

			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return "resp", tt.err
			}

			resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: GetSubmissionStatusMethod}, handler)

			assert.Equal(t, "resp", resp)
			assert.Equal(t, tt.err, err)

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, tt.wantCode)
			assert.Contains(t, out, GetSubmissionStatusMethod)
		})
	}
}
