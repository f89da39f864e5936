package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/lotwise-backend/internal/domain"
	"github.com/simaogato/lotwise-backend/internal/usecase/report"
	"github.com/simaogato/lotwise-backend/internal/usecase/submission"
)

// Server implements the TaxReportService gRPC server
type Server struct {
	ReportGenerator *report.TaxReportGenerator
	Submitter       *submission.TaxReportSubmitter
	Logger          *slog.Logger
}

var _ TaxReportServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	reportGenerator *report.TaxReportGenerator,
	submitter *submission.TaxReportSubmitter,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ReportGenerator: reportGenerator,
		Submitter:       submitter,
		Logger:          logger,
	}
}

// NewGRPCServer builds a grpc.Server with logging and token auth on every call
func NewGRPCServer(validToken string, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(LoggingInterceptor(logger), AuthInterceptor(validToken)),
		grpc.ChainStreamInterceptor(StreamLoggingInterceptor(logger), StreamAuthInterceptor(validToken)),
	)
	return grpc.NewServer(opts...)
}

// ProcessTaxReport handles the ProcessTaxReport RPC
func (s *Server) ProcessTaxReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := parseTaxReportRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	result, err := s.ReportGenerator.ProcessTaxReport(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(ReportToMap(result))
}

// SubmitTaxReport handles the SubmitTaxReport RPC
// Logic:
//  1. Compute the report exactly like ProcessTaxReport
//  2. Hand the result to the submitter, which files it in the background
//  3. Respond with the submission id alongside the report
func (s *Server) SubmitTaxReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := parseTaxReportRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	result, err := s.ReportGenerator.ProcessTaxReport(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	id, err := s.Submitter.Submit(result)
	if err != nil {
		return nil, mapError(err)
	}

	body := ReportToMap(result)
	body[fieldSubmissionID] = id.String()
	body["status"] = string(domain.SubmissionStatusInProgress)

	return toStruct(body)
}

// GetSubmissionStatus handles the GetSubmissionStatus RPC
func (s *Server) GetSubmissionStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sub, err := s.lookupSubmission(req)
	if err != nil {
		return nil, err
	}
	return toStruct(SubmissionStateToMap(sub.State()))
}

// WatchSubmission streams the current state and then, if it was not yet terminal,
// the terminal state once it is reached
func (s *Server) WatchSubmission(req *structpb.Struct, stream grpc.ServerStream) error {
	sub, err := s.lookupSubmission(req)
	if err != nil {
		return err
	}

	current := sub.State()
	if err := sendState(stream, current); err != nil {
		return err
	}
	if current.Status.Terminal() {
		return nil
	}

	select {
	case <-sub.Done():
	case <-stream.Context().Done():
		s.Logger.Debug("Submission watcher left early", "submissionId", current.ID)
		return status.FromContextError(stream.Context().Err()).Err()
	}

	return sendState(stream, sub.State())
}

func (s *Server) lookupSubmission(req *structpb.Struct) (*submission.Submission, error) {
	id, err := parseSubmissionID(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	sub, ok := s.Submitter.Status(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "submission not found: %s", id)
	}
	return sub, nil
}

func sendState(stream grpc.ServerStream, state domain.SubmissionState) error {
	msg, err := toStruct(SubmissionStateToMap(state))
	if err != nil {
		return err
	}
	return stream.SendMsg(msg)
}

func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return msg, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrSellNotFound),
		errors.Is(err, domain.ErrBuyNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())

	case errors.Is(err, domain.ErrNotABuyTransaction),
		errors.Is(err, domain.ErrMissingBuyIDs),
		errors.Is(err, domain.ErrBuyAfterSell),
		errors.Is(err, domain.ErrInvalidTaxTreatment),
		errors.Is(err, domain.ErrUnitMismatch):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())

	case errors.Is(err, domain.ErrSubmitterClosed):
		return status.Errorf(codes.Unavailable, "%s", err.Error())

	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
