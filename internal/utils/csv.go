// Package utils holds the kline CSV codec shared by the CLI and backtests.
package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

var klineHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteKlinesToCSV writes klines to filename, creating or truncating it.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w: %w", filename, ports.ErrWriteFailed, err)
	}
	defer file.Close()

	if err := WriteKlines(file, klines); err != nil {
		return err
	}
	return file.Sync()
}

// WriteKlines encodes klines as CSV with a header row.
func WriteKlines(w io.Writer, klines []*domain.Kline) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(klineHeader); err != nil {
		return fmt.Errorf("write header: %w: %w", ports.ErrWriteFailed, err)
	}
	for _, k := range klines {
		err := writer.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339Nano),
			k.CloseTime.UTC().Format(time.RFC3339Nano),
			k.Symbol,
			k.Interval,
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatFloat(k.Volume, 'f', -1, 64),
		})
		if err != nil {
			return fmt.Errorf("write kline: %w: %w", ports.ErrWriteFailed, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush klines: %w: %w", ports.ErrWriteFailed, err)
	}
	return nil
}

// ReadKlinesFromCSV reads a file written by WriteKlinesToCSV.
func ReadKlinesFromCSV(filename string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", filename, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()
	return ReadKlines(file)
}

// ReadKlines decodes CSV klines. The header row is required; rows are
// returned in file order.
func ReadKlines(r io.Reader) ([]*domain.Kline, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(klineHeader)

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w: %w", ports.ErrInvalidRequest, err)
	}

	var klines []*domain.Kline
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, ports.ErrInvalidRequest, err)
		}
		k, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseKline(row []string) (*domain.Kline, error) {
	openTime, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return nil, fmt.Errorf("open_time: %w: %w", ports.ErrInvalidRequest, err)
	}
	closeTime, err := time.Parse(time.RFC3339Nano, row[1])
	if err != nil {
		return nil, fmt.Errorf("close_time: %w: %w", ports.ErrInvalidRequest, err)
	}

	var values [5]float64
	for i := range values {
		values[i], err = strconv.ParseFloat(row[4+i], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", klineHeader[4+i], ports.ErrInvalidRequest, err)
		}
	}

	return &domain.Kline{
		OpenTime:  openTime,
		CloseTime: closeTime,
		Symbol:    row[2],
		Interval:  row[3],
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
