package grpcprover

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/jwz/artifacts"
	"xdao.co/jwz/proving"
)

// Server exposes a method registry backed by an artifact store over the
// Prover gRPC service. Proving and verification keys never leave the server.
type Server struct {
	UnimplementedProverServer
	Methods   *proving.Registry
	Artifacts *artifacts.Store
}

func (s *Server) Prove(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	var req proveRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed prove request")
	}

	method, bundle, err := s.resolve(req.Alg, req.CircuitID)
	if err != nil {
		return nil, err
	}

	proof, err := method.Prove(req.Inputs, bundle.ProvingKey, bundle.CircuitProgram)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := json.Marshal(proof)
	if err != nil {
		return nil, status.Error(codes.Internal, "serialize proof")
	}
	return wrapperspb.Bytes(out), nil
}

func (s *Server) Verify(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	var req verifyRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed verify request")
	}
	if req.Proof == nil {
		return nil, status.Error(codes.InvalidArgument, "missing proof")
	}

	method, bundle, err := s.resolve(req.Alg, req.CircuitID)
	if err != nil {
		return nil, err
	}

	if err := method.Verify(req.MessageHash, req.Proof, bundle.VerificationKey); err != nil {
		// An invalid proof is a negative answer, not a transport failure.
		return wrapperspb.Bool(false), nil
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) resolve(alg, circuitID string) (proving.Method, *artifacts.Bundle, error) {
	if s == nil || s.Methods == nil || s.Artifacts == nil {
		return nil, nil, status.Error(codes.FailedPrecondition, "prover not configured")
	}
	method, ok := s.Methods.Method(alg)
	if !ok {
		return nil, nil, status.Errorf(codes.NotFound, "no proving method for alg %q", alg)
	}
	bundle, err := s.Artifacts.Load(circuitID)
	if err != nil {
		return nil, nil, status.Errorf(codes.NotFound, "artifacts for circuit %q: %v", circuitID, err)
	}
	return method, bundle, nil
}
