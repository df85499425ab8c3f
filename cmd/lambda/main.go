// Command lambda runs one collection pass per scheduled CloudWatch event.
package main

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"sjsage522/eventworker/config"
	"sjsage522/eventworker/internal"
	"sjsage522/eventworker/logger"
	"sjsage522/eventworker/services/worker"
)

// Response is returned to the scheduler.
type Response struct {
	Result    string `json:"result"`
	Extracted int    `json:"extracted"`
	Failures  int    `json:"failures"`
	Sent      int    `json:"sent"`
}

// Handler runs the job once. The all-failed case has already been alerted
// and is reported as a result instead of an invocation error, so the
// scheduler does not retry it.
func Handler(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	log := logger.Default
	log.Info().Str("source", event.Source).Time("scheduled", event.Time).Msg("scheduled invocation")

	cfg, err := config.LoadConfig("")
	if err != nil {
		return Response{Result: "error"}, err
	}
	if err := cfg.Validate(); err != nil {
		return Response{Result: "error"}, err
	}

	deps, err := internal.NewDependencies(ctx, cfg)
	if err != nil {
		return Response{Result: "error"}, err
	}
	defer deps.Close()

	res, err := deps.Job().Run(ctx)
	resp := Response{Result: "success"}
	if res != nil {
		resp.Extracted = res.Extracted
		resp.Failures = len(res.Failures)
		resp.Sent = len(res.Sent)
	}
	switch {
	case errors.Is(err, worker.ErrAllExtractorsFailed):
		resp.Result = "all_failed"
		return resp, nil
	case err != nil:
		resp.Result = "error"
		return resp, err
	}
	return resp, nil
}

func main() {
	logger.Init()
	lambda.Start(Handler)
}
