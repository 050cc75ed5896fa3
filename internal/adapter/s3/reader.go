package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
)

// Reader loads raw historical weather rows from partitioned parquet files
// under a bucket prefix. It implements pipeline.HistoricalSource.
type Reader struct {
	api    ReadAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// NewReader creates a historical source over s3://bucket/prefix.
func NewReader(api ReadAPI, bucket, prefix string, logger *slog.Logger) *Reader {
	return &Reader{api: api, bucket: bucket, prefix: prefix, logger: logger}
}

// LoadRaw lists every parquet object under the prefix and decodes all of
// them into raw rows. Files use whatever column set their producer wrote;
// unknown columns are ignored and year/month are backfilled from hive-style
// partition directories when a file omits them. Object keys are processed
// in sorted order so repeated runs see rows in the same order.
func (r *Reader) LoadRaw(ctx context.Context) ([]domain.RawRow, error) {
	keys, err := r.listParquetKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no parquet objects under s3://%s/%s", r.bucket, r.prefix)
	}

	var rows []domain.RawRow
	for _, key := range keys {
		data, err := r.download(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("download s3://%s/%s: %w", r.bucket, key, err)
		}

		partYear, partMonth := partitionValues(key)
		fileRows, err := decodeParquet(data, partYear, partMonth)
		if err != nil {
			return nil, fmt.Errorf("decode s3://%s/%s: %w", r.bucket, key, err)
		}

		r.logger.Debug("loaded parquet file", "key", key, "rows", len(fileRows))
		rows = append(rows, fileRows...)
	}

	r.logger.Info("loaded historical rows", "files", len(keys), "rows", len(rows))
	return rows, nil
}

func (r *Reader) listParquetKeys(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := awss3.NewListObjectsV2Paginator(r.api, &awss3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", r.bucket, r.prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if strings.HasSuffix(*obj.Key, ".parquet") {
				keys = append(keys, *obj.Key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Reader) download(ctx context.Context, key string) ([]byte, error) {
	out, err := r.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// partitionValues extracts year and month from hive-style path segments
// such as "processed/raw/year=2019/month=06/part-0.parquet".
func partitionValues(key string) (year, month *int) {
	for _, seg := range strings.Split(key, "/") {
		if v, ok := strings.CutPrefix(seg, "year="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				year = &n
			}
		}
		if v, ok := strings.CutPrefix(seg, "month="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				month = &n
			}
		}
	}
	return year, month
}

// decodeParquet reads every row of a parquet file into RawRow, matching
// columns by lowercased leaf name. The two producer schemas share no value
// columns, so a single mapping covers both.
func decodeParquet(data []byte, partYear, partMonth *int) ([]domain.RawRow, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	columns := f.Schema().Columns()
	names := make([]string, len(columns))
	for i, path := range columns {
		names[i] = strings.ToLower(path[len(path)-1])
	}

	var out []domain.RawRow
	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		buf := make([]parquet.Row, 64)
		for {
			n, err := rows.ReadRows(buf)
			for i := range n {
				row, convErr := convertRow(buf[i], names, partYear, partMonth)
				if convErr != nil {
					rows.Close()
					return nil, convErr
				}
				out = append(out, row)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close row reader: %w", err)
		}
	}
	return out, nil
}

func convertRow(row parquet.Row, names []string, partYear, partMonth *int) (domain.RawRow, error) {
	var raw domain.RawRow
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		col := v.Column()
		if col < 0 || col >= len(names) {
			continue
		}
		if err := assignField(&raw, names[col], v); err != nil {
			return domain.RawRow{}, err
		}
	}
	if raw.Year == nil && partYear != nil {
		y := *partYear
		raw.Year = &y
	}
	if raw.Month == nil && partMonth != nil {
		m := *partMonth
		raw.Month = &m
	}
	return raw, nil
}

func assignField(raw *domain.RawRow, name string, v parquet.Value) error {
	switch name {
	case "year":
		return setInt(&raw.Year, name, v)
	case "month":
		return setInt(&raw.Month, name, v)
	case "day":
		return setInt(&raw.Day, name, v)
	case "date":
		return setDate(raw, v)
	case "datatype":
		s := v.String()
		raw.Datatype = &s
	case "element":
		s := v.String()
		raw.Element = &s
	case "value":
		return setFloat(&raw.Value, name, v)
	case "value_c", "valuec":
		return setFloat(&raw.ValueC, name, v)
	case "tmax":
		return setFloat(&raw.TMAX, name, v)
	case "tmin":
		return setFloat(&raw.TMIN, name, v)
	case "prcp":
		return setFloat(&raw.PRCP, name, v)
	case "windspeed":
		return setFloat(&raw.Windspeed, name, v)
	}
	// Station IDs, attributes, and other producer-specific columns.
	return nil
}

func setInt(dst **int, name string, v parquet.Value) error {
	switch v.Kind() {
	case parquet.Int32:
		n := int(v.Int32())
		*dst = &n
	case parquet.Int64:
		n := int(v.Int64())
		*dst = &n
	case parquet.Double:
		n := int(v.Double())
		*dst = &n
	case parquet.ByteArray:
		n, err := strconv.Atoi(strings.TrimSpace(v.String()))
		if err != nil {
			return fmt.Errorf("column %s: parse %q as int: %w", name, v.String(), err)
		}
		*dst = &n
	default:
		return fmt.Errorf("column %s: unsupported kind %s", name, v.Kind())
	}
	return nil
}

func setFloat(dst **float64, name string, v parquet.Value) error {
	switch v.Kind() {
	case parquet.Int32:
		f := float64(v.Int32())
		*dst = &f
	case parquet.Int64:
		f := float64(v.Int64())
		*dst = &f
	case parquet.Float:
		f := float64(v.Float())
		*dst = &f
	case parquet.Double:
		f := v.Double()
		*dst = &f
	case parquet.ByteArray:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if err != nil {
			return fmt.Errorf("column %s: parse %q as float: %w", name, v.String(), err)
		}
		*dst = &f
	default:
		return fmt.Errorf("column %s: unsupported kind %s", name, v.Kind())
	}
	return nil
}

// setDate splits a "YYYY-MM-DD" column into year, month, and day without
// overwriting values that dedicated columns already set.
func setDate(raw *domain.RawRow, v parquet.Value) error {
	parts := strings.SplitN(v.String(), "-", 3)
	if len(parts) != 3 {
		return fmt.Errorf("column date: malformed value %q", v.String())
	}
	fields := []**int{&raw.Year, &raw.Month, &raw.Day}
	for i, part := range parts {
		if *fields[i] != nil {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("column date: parse %q: %w", v.String(), err)
		}
		*fields[i] = &n
	}
	return nil
}
