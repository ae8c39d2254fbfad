package cmd

import (
	"github.com/etnz/backtest/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var modes = predict.Set{"quarterly", "yearly", "none"}

// Completion returns the shell completion tree of btest.
func Completion() *complete.Command {
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config":    predict.Files("*.yaml"),
			"data-dir":  predict.Dirs("*"),
			"log-level": predict.Set{"debug", "info", "warn", "error"},
			"pretty":    predict.Nothing,
			"db":        predict.Files("*.db"),
		},
		Sub: map[string]*complete.Command{
			"run": {
				Flags: map[string]complete.Predictor{
					"start":        predict.Something,
					"finish":       predict.Something,
					"rebalance":    modes,
					"stop-loss":    predict.Nothing,
					"no-stop-loss": predict.Nothing,
					"csv":          predict.Files("*.csv"),
					"chart":        predict.Files("*.png"),
					"html":         predict.Files("*.html"),
					"save":         predict.Nothing,
					"q":            predict.Nothing,
				},
			},
			"calendar": {
				Flags: map[string]complete.Predictor{"rebalance": modes},
			},
			"runs":   {},
			"show":   {Args: predict.Something},
			"delete": {Args: predict.Something},
			"topic":  {Args: topics()},
			"help":   {},
		},
	}
}

// topics predicts the documentation topics.
func topics() complete.Predictor {
	names, err := docs.GetAllTopics()
	if err != nil {
		return predict.Nothing
	}
	return predict.Set(append(names, "readme"))
}
