package grpcprover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/jwz/proving"
)

// ErrProofRejected is returned by remote verification when the server
// answers false for a well-formed request.
var ErrProofRejected = errors.New("grpcprover: proof rejected by remote verifier")

// Client talks to a Prover gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client ProverClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero. Prepared
	// witness inputs can be large.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewProverClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Method returns a proving.Method that runs on the remote prover. Key
// material is held server-side in the prover's artifact store, so the
// provingKey, circuitProgram and verificationKey arguments of the method are
// ignored by this adapter.
func (c *Client) Method(alg, circuitID string) proving.Method {
	return &remoteMethod{c: c, alg: alg, circuitID: circuitID}
}

type remoteMethod struct {
	c         *Client
	alg       string
	circuitID string
}

func (m *remoteMethod) Alg() string       { return m.alg }
func (m *remoteMethod) CircuitID() string { return m.circuitID }

func (m *remoteMethod) Prove(inputs, provingKey, circuitProgram []byte) (*proving.ZKProof, error) {
	_, _ = provingKey, circuitProgram

	req, err := json.Marshal(proveRequest{Alg: m.alg, CircuitID: m.circuitID, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("grpcprover: encode prove request: %w", err)
	}

	ctx, cancel := m.c.ctx()
	defer cancel()

	reply, err := m.c.client.Prove(ctx, wrapperspb.Bytes(req))
	if err != nil {
		return nil, fmt.Errorf("grpcprover: prove: %w", err)
	}

	var proof proving.ZKProof
	if err := json.Unmarshal(reply.GetValue(), &proof); err != nil {
		return nil, fmt.Errorf("grpcprover: decode proof: %w", err)
	}
	return &proof, nil
}

func (m *remoteMethod) Verify(messageHash []byte, proof *proving.ZKProof, verificationKey []byte) error {
	_ = verificationKey

	req, err := json.Marshal(verifyRequest{
		Alg:         m.alg,
		CircuitID:   m.circuitID,
		MessageHash: messageHash,
		Proof:       proof,
	})
	if err != nil {
		return fmt.Errorf("grpcprover: encode verify request: %w", err)
	}

	ctx, cancel := m.c.ctx()
	defer cancel()

	reply, err := m.c.client.Verify(ctx, wrapperspb.Bytes(req))
	if err != nil {
		return fmt.Errorf("grpcprover: verify: %w", err)
	}
	if !reply.GetValue() {
		return ErrProofRejected
	}
	return nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}

var _ proving.Method = (*remoteMethod)(nil)
