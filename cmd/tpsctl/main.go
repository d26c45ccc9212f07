// Command tpsctl exercises and inspects a taskprocessor registry in
// process: ping a named processor, print the report table, or run a
// concurrent push benchmark with an optional Prometheus endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	obs "github.com/Eyepea/asterisk/observability/prometheus"
	"github.com/Eyepea/asterisk/taskprocessor"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tpsctl",
		Usage: "Exercise and inspect named taskprocessors",
		Commands: []*cli.Command{
			pingCommand(),
			reportCommand(),
			benchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Display the time required for a task to be processed",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Required: true,
				Usage:    "Name of the taskprocessor",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: taskprocessor.DefaultPingTimeout,
				Usage: "Give up after this long",
			},
		},

		Action: pingAction,
	}
}

func pingAction(c *cli.Context) error {
	name := c.String("name")

	reg := taskprocessor.NewRegistry(taskprocessor.WithLogger(taskprocessor.NewNoOpLogger()))
	tps, err := reg.Get(name, taskprocessor.CreateIfMissing)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ping failed: %v", err), 1)
	}
	defer tps.Unreference()

	fmt.Printf("pinging %s ...\n", name)
	elapsed, err := reg.Ping(name, c.Duration("timeout"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("ping failed: %v", err), 1)
	}
	fmt.Printf("%24s ping time: %v\n", name, elapsed)
	return nil
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:   "report",
		Usage:  "Run a small workload and list taskprocessors with statistics",
		Action: reportAction,
	}
}

func reportAction(c *cli.Context) error {
	reg := taskprocessor.NewRegistry(taskprocessor.WithLogger(taskprocessor.NewNoOpLogger()))

	for _, name := range []string{"pbx/core", "sip/registrar", "cdr/batch"} {
		tps, err := reg.Get(name, taskprocessor.CreateIfMissing)
		if err != nil {
			return cli.Exit(fmt.Sprintf("create %s: %v", name, err), 1)
		}
		defer tps.Unreference()

		for i := 0; i < 50; i++ {
			if err := tps.Push(func(any) { time.Sleep(time.Millisecond) }, nil); err != nil {
				return cli.Exit(fmt.Sprintf("push to %s: %v", name, err), 1)
			}
		}
	}

	waitDrained(reg, 5*time.Second)
	printReport(reg)
	return nil
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Push tasks from concurrent producers and report throughput",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "processors",
				Value: 4,
				Usage: "Number of taskprocessors to create",
			},
			&cli.IntFlag{
				Name:  "producers",
				Value: 8,
				Usage: "Concurrent producers per taskprocessor",
			},
			&cli.IntFlag{
				Name:  "tasks",
				Value: 1000,
				Usage: "Tasks each producer pushes",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address while running",
			},
		},

		Action: benchAction,
	}
}

func benchAction(c *cli.Context) error {
	processors := c.Int("processors")
	producers := c.Int("producers")
	tasks := c.Int("tasks")

	promReg := prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("taskprocessor", promReg, obs.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("metrics exporter: %v", err), 1)
	}

	reg := taskprocessor.NewRegistry(
		taskprocessor.WithLogger(taskprocessor.NewNoOpLogger()),
		taskprocessor.WithMetrics(exporter),
	)

	if addr := c.String("metrics-addr"); addr != "" {
		poller, err := obs.NewSnapshotPoller(promReg, reg, 250*time.Millisecond)
		if err != nil {
			return cli.Exit(fmt.Sprintf("snapshot poller: %v", err), 1)
		}
		poller.Start(context.Background())
		defer poller.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		go func() {
			_ = http.ListenAndServe(addr, mux)
		}()
		fmt.Printf("serving metrics on http://%s/metrics\n", addr)
	}

	begin := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < processors; i++ {
		name := fmt.Sprintf("bench/%d", i)
		tps, err := reg.Get(name, taskprocessor.CreateIfMissing)
		if err != nil {
			return cli.Exit(fmt.Sprintf("create %s: %v", name, err), 1)
		}
		defer tps.Unreference()

		for j := 0; j < producers; j++ {
			wg.Add(1)
			go func(tps *taskprocessor.Processor) {
				defer wg.Done()
				for k := 0; k < tasks; k++ {
					_ = tps.Push(func(any) {}, nil)
				}
			}(tps)
		}
	}
	wg.Wait()
	waitDrained(reg, time.Minute)
	elapsed := time.Since(begin)

	printReport(reg)

	want := uint64(processors) * uint64(producers) * uint64(tasks)
	var got uint64
	for _, row := range reg.Report() {
		got += row.Processed
	}
	fmt.Printf("\n%d tasks in %v (%.0f tasks/sec)\n", got, elapsed, float64(got)/elapsed.Seconds())
	if got != want {
		return cli.Exit(fmt.Sprintf("task count mismatch: processed %d, pushed %d", got, want), 1)
	}
	return nil
}

// waitDrained polls until every processor's queue is empty or the deadline
// passes.
func waitDrained(reg *taskprocessor.Registry, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		drained := true
		for _, row := range reg.Report() {
			if row.Depth > 0 {
				drained = false
				break
			}
		}
		if drained {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func printReport(reg *taskprocessor.Registry) {
	fmt.Println("\t+----- Processor -----+--- Processed ---+- In Queue -+- Max Depth -+")
	for _, row := range reg.Report() {
		fmt.Printf("%24s   %17d %12d %12d\n", row.Name, row.Processed, row.Depth, row.MaxDepth)
	}
	fmt.Println("\t+---------------------+-----------------+------------+-------------+")
	fmt.Printf("\t%d taskprocessors\n", reg.Count())
}
