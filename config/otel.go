// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config defines the telemetry settings read from the apimeta config file.
package config

import (
	"time"
)

// Resource identifies the process in exported telemetry.
type Resource struct {
	ServiceName    string `config:"service_name"`
	ServiceVersion string `config:"service_version"`
}

// ExporterType selects where a signal is sent.
type ExporterType string

const (
	// NoExporter drops the signal.
	NoExporter ExporterType = "none"

	// StdoutExporter writes the signal to stdout. Only logs support it.
	StdoutExporter ExporterType = "stdout"

	// OTLPExporter sends the signal to an OTLP collector.
	OTLPExporter ExporterType = "otlp"
)

// OTLPConnType
type OTLPConnType string

const (
	OTLPHTTP OTLPConnType = "http"
	OTLPGRPC OTLPConnType = "grpc"
)

// OTLP
type OTLP struct {
	Type   OTLPConnType `config:"type"`
	Target string       `config:"target"`
}

// Exporter
type Exporter struct {
	Type ExporterType `config:"type"`
	OTLP OTLP         `config:"otlp"`
}

// Batch
type Batch struct {
	ExportInterval time.Duration `config:"export_interval"`
	MaxSize        int           `config:"max_size"`
}

// Trace configures span export for endpoint calls.
type Trace struct {
	Exporter Exporter `config:"exporter"`
	Batch    Batch    `config:"batch"`

	// SamplingRatio is the fraction of calls which are traced.
	SamplingRatio float64 `config:"sampling_ratio"`
}

// Metric configures export of the call counters and runtime metrics.
type Metric struct {
	Exporter       Exporter      `config:"exporter"`
	ExportInterval time.Duration `config:"export_interval"`
	Runtime        bool          `config:"runtime"`
}

// Log configures where records from the otelslog bridge end up.
type Log struct {
	Exporter Exporter `config:"exporter"`
	Batch    Batch    `config:"batch"`

	// Level is the minimum level written by the stdout exporter.
	// One of debug, info, warn or error.
	Level string `config:"level"`
}

// OTel
type OTel struct {
	Resource Resource `config:"resource"`
	Trace    Trace    `config:"trace"`
	Metric   Metric   `config:"metric"`
	Log      Log      `config:"log"`
}
