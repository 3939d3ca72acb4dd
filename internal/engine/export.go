package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"tourline/internal/repo"
)

type tourParquetRow struct {
	ID          int64   `parquet:"name=id, type=INT64"`
	Title       string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartTime   string  `parquet:"name=start_time, type=BYTE_ARRAY, convertedtype=UTF8"`
	TimeZoneID  string  `parquet:"name=time_zone_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Distance    float64 `parquet:"name=distance, type=DOUBLE"`
	ElapsedTime int64   `parquet:"name=elapsed_time, type=INT64"`
	TourType    string  `parquet:"name=tour_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Tags        string  `parquet:"name=tags, type=BYTE_ARRAY, convertedtype=UTF8"`
	ImportFile  string  `parquet:"name=import_file, type=BYTE_ARRAY, convertedtype=UTF8"`
	RunID       string  `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ImportedAt  string  `parquet:"name=imported_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportParquet writes one summary row per stored tour to w and returns the
// number of rows written.
func (e Engine) ExportParquet(ctx context.Context, w io.Writer) (int, error) {
	tours, err := e.Repo.ListTours(ctx, repo.TourFilters{})
	if err != nil {
		return 0, err
	}
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(tourParquetRow), 4)
	if err != nil {
		return 0, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, t := range tours {
		row := tourParquetRow{
			ID:          int64(t.ID),
			Title:       t.Title,
			StartTime:   t.StartTime,
			TimeZoneID:  t.TimeZoneID,
			Distance:    float64(t.Distance),
			ElapsedTime: t.ElapsedTime,
			TourType:    t.TourType,
			Tags:        strings.Join(t.Tags, ","),
			ImportFile:  t.ImportFile,
			RunID:       t.RunID,
			ImportedAt:  t.ImportedAt,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return 0, fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return 0, err
	}
	if err := fw.Close(); err != nil {
		return 0, err
	}
	if _, err := w.Write(fw.Bytes()); err != nil {
		return 0, err
	}
	return len(tours), nil
}
