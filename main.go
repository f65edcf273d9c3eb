package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "linefit: %v\n", err)
		os.Exit(1)
	}
}

// run 组装命令树并执行，收到中断信号时取消 context。
func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
