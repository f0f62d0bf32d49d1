// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrMissingBrokerAddr is returned when no broker address is configured.
	ErrMissingBrokerAddr = errors.New("broker address is required")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be greater than 0")

	// ErrInvalidCapacity is returned when a capacity/parallel value is not positive.
	ErrInvalidCapacity = errors.New("capacity must be greater than 0")

	// ErrMissingNodeName is returned when a worker has no node identity.
	ErrMissingNodeName = errors.New("node name is required")

	// ErrInvalidWeigher is returned for an unrecognized weigher name.
	ErrInvalidWeigher = errors.New("weigher must be one of: \"\", instances, vcpu")

	// ErrInvalidWeigherOrder is returned for an unrecognized weigher order.
	ErrInvalidWeigherOrder = errors.New("weigher-order must be min or max")

	// ErrMissingOutputDir is returned when a pipeline stage has no input or output directory.
	ErrMissingOutputDir = errors.New("output directory is required")

	// ErrInvalidDispatcherMode is returned for an unrecognized dispatcher mode.
	ErrInvalidDispatcherMode = errors.New("mode must be one of: rr3, duration-greedy, central-fifo, central-pulse")
)
