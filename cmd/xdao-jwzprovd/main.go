package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xdao.co/jwz/artifacts"
	"xdao.co/jwz/proving"
	"xdao.co/jwz/proving/groth16"
	"xdao.co/jwz/proving/grpcprover"
)

func main() {
	fs := flag.NewFlagSet("xdao-jwzprovd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7788", "listen address")
	artifactsDir := fs.String("artifacts", "", "circuit artifact directory (default ~/.xdao/jwz/circuits)")

	_ = fs.Parse(os.Args[1:])

	dir := *artifactsDir
	if dir == "" {
		var err error
		dir, err = artifacts.DefaultDirectory()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	methods := proving.NewRegistry()
	methods.Register(groth16.New(""))

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcprover.RegisterProverServer(s, &grpcprover.Server{
		Methods:   methods,
		Artifacts: &artifacts.Store{Directory: dir},
	})

	fmt.Fprintf(os.Stderr, "xdao-jwzprovd listening on %s (artifacts=%s)\n", lis.Addr().String(), dir)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
