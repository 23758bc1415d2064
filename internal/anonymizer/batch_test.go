// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package anonymizer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prikit/internal/redactors"
)

func TestProcessMany_PartialFailure(t *testing.T) {
	a, _, _ := newStubAnonymizer(t, redactors.FileTypeExcel)
	dir := t.TempDir()
	inputs := []string{
		writeInput(t, dir, "a.xlsx", "a"),
		writeInput(t, dir, "b.xlsx", "b"),
		filepath.Join(dir, "missing.xlsx"),
		writeInput(t, dir, "c.xlsx", "c"),
	}

	var progress []int
	result, err := a.ProcessMany(context.Background(), inputs, Options{
		Strategy: redactors.StrategyMask,
		Progress: func(completed, total int, input string) {
			assert.Equal(t, 4, total)
			assert.Equal(t, inputs[completed-1], input)
			progress = append(progress, completed)
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 4)
	assert.Equal(t, 3, result.SuccessCount())
	assert.Equal(t, []string{inputs[2]}, result.Failed())
	assert.Len(t, result.Outputs(), 3)
	assert.Len(t, result.OutputList(), 3)
	assert.True(t, redactors.IsType(result.Results[2].Error, redactors.ErrorFileValidation))
	assert.Equal(t, 2, result.Results[0].Redactions)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	batchErr := result.Err()
	require.Error(t, batchErr)
	assert.True(t, redactors.IsType(batchErr, redactors.ErrorBatchProcessing))
}

func TestProcessMany_EmptyInput(t *testing.T) {
	a, _, _ := newStubAnonymizer(t, redactors.FileTypeWord)

	_, err := a.ProcessMany(context.Background(), nil, Options{Strategy: redactors.StrategyMask})
	assert.True(t, redactors.IsType(err, redactors.ErrorBatchProcessing))

	_, err = a.ProcessManyParallel(context.Background(), []string{}, Options{Strategy: redactors.StrategyMask}, 2, time.Second)
	assert.True(t, redactors.IsType(err, redactors.ErrorBatchProcessing))
}

func TestProcessMany_InvalidMethodFailsEachFile(t *testing.T) {
	a, _, _ := newStubAnonymizer(t, redactors.FileTypePPT)
	dir := t.TempDir()
	inputs := []string{writeInput(t, dir, "a.pptx", "a"), writeInput(t, dir, "b.pptx", "b")}

	result, err := a.ProcessMany(context.Background(), inputs, Options{Strategy: redactors.StrategyFake})
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount())
	for _, r := range result.Results {
		assert.True(t, redactors.IsType(r.Error, redactors.ErrorMethodNotSupported))
	}
}

func TestProcessManyParallel_TimeoutAndOrder(t *testing.T) {
	a, stub, outDir := newStubAnonymizer(t, redactors.FileTypeWord)
	dir := t.TempDir()
	inputs := []string{
		writeInput(t, dir, "one.docx", "1"),
		writeInput(t, dir, "slow.docx", "2"),
		writeInput(t, dir, "three.docx", "3"),
		writeInput(t, dir, "broken.docx", "4"),
	}
	stub.block["slow.docx"] = true
	stub.fail["broken.docx"] = errCodec

	result, err := a.ProcessManyParallel(context.Background(), inputs, Options{Strategy: redactors.StrategyMask}, 3, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, result.Results, 4)

	for i, r := range result.Results {
		assert.Equal(t, inputs[i], r.Input)
	}
	assert.True(t, result.Results[0].Succeeded())
	assert.Equal(t, 2, result.Results[0].Redactions)
	assert.True(t, redactors.IsType(result.Results[1].Error, redactors.ErrorProcessingTimeout))
	assert.True(t, result.Results[2].Succeeded())
	assert.ErrorIs(t, result.Results[3].Error, errCodec)
	assert.ElementsMatch(t, []string{inputs[1], inputs[3]}, result.Failed())

	assert.Eventually(t, func() bool {
		return len(listDir(t, outDir)) == 2
	}, time.Second, 10*time.Millisecond, "only successful outputs remain")
}
