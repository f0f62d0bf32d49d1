// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// WriteParquetTasks writes tasks.parquet under dir with the fixed schema
// from TaskRecord. Any write failure aborts without leaving a partial file
// behind, per §7's "never emit partial parquet" rule.
func WriteParquetTasks(dir string, tasks []TaskRecord) error {
	path := filepath.Join(dir, "tasks.parquet")
	return writeParquet(path, new(TaskRecord), func(pw *writer.ParquetWriter) error {
		for _, t := range tasks {
			if err := pw.Write(t); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteParquetFragments writes fragments.parquet under dir.
func WriteParquetFragments(dir string, fragments []FragmentRecord) error {
	path := filepath.Join(dir, "fragments.parquet")
	return writeParquet(path, new(FragmentRecord), func(pw *writer.ParquetWriter) error {
		for _, f := range fragments {
			if err := pw.Write(f); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeParquet(path string, schema interface{}, write func(*writer.ParquetWriter) error) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "opening "+filepath.Base(path), err)
	}

	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		_ = fw.Close()
		_ = os.Remove(path)
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "creating parquet writer for "+filepath.Base(path), err)
	}
	pw.RowGroupSize = 64 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	if err := write(pw); err != nil {
		_ = fw.Close()
		_ = os.Remove(path)
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "writing rows for "+filepath.Base(path), err)
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		_ = os.Remove(path)
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "finalizing "+filepath.Base(path), err)
	}
	if err := fw.Close(); err != nil {
		_ = os.Remove(path)
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "closing "+filepath.Base(path), err)
	}
	return nil
}

// WriteTopology writes small_datacenter.json with the exact field order
// the simulator expects: name, count, cpu{coreCount, coreSpeed},
// memory{memorySize}.
func WriteTopology(dir string, cluster Cluster) error {
	data, err := json.MarshalIndent(cluster, "", "  ")
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "encoding small_datacenter.json", err)
	}
	path := filepath.Join(dir, "small_datacenter.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeSchemaViolation, "writing small_datacenter.json", err)
	}
	return nil
}
