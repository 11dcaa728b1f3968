package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains a source, separating units from yielded errors
func collect(t *testing.T, src Source) ([]TextUnit, []error) {
	t.Helper()

	var units []TextUnit
	var errs []error
	for unit, err := range src.Units(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, unit)
	}
	return units, errs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFile_Units(t *testing.T) {
	path := writeFile(t, "users.csv", "name,phone\r\nRaj,9876543210\n\nlast line without newline")

	src, err := NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, "users.csv", src.Name())

	units, errs := collect(t, src)
	require.Empty(t, errs)
	assert.Equal(t, []TextUnit{
		{Text: "name,phone", Location: "1"},
		{Text: "Raj,9876543210", Location: "2"},
		{Text: "", Location: "3"},
		{Text: "last line without newline", Location: "4"},
	}, units)
}

func TestFile_LineEndings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"Bare CR", "clean\rPAN ABCDE1234F\rphone 9876543210\r", []string{"clean", "PAN ABCDE1234F", "phone 9876543210"}},
		{"Mixed", "a\r\nb\rc\nd", []string{"a", "b", "c", "d"}},
		{"Blank CR lines", "a\r\rb", []string{"a", "", "b"}},
		{"Trailing CRLF", "a\r\n", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewFile(writeFile(t, "legacy.txt", tt.content))
			require.NoError(t, err)

			units, errs := collect(t, src)
			require.Empty(t, errs)

			var texts, locations []string
			for _, u := range units {
				texts = append(texts, u.Text)
				locations = append(locations, u.Location)
			}
			assert.Equal(t, tt.want, texts)
			for i, loc := range locations {
				assert.Equal(t, fmt.Sprint(i+1), loc)
			}

			// Bucket objects with the same bytes split the same way
			assert.Equal(t, tt.want, splitLines(tt.content))
		})
	}
}

func TestFile_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024) + " ABCDE1234F"
	src, err := NewFile(writeFile(t, "wide.csv", long+"\nnext"))
	require.NoError(t, err)

	units, errs := collect(t, src)
	require.Empty(t, errs)
	require.Len(t, units, 2)
	assert.Equal(t, long, units[0].Text)
	assert.Equal(t, "2", units[1].Location)
}

func TestScanLines_CRAtBufferBoundary(t *testing.T) {
	advance, token, err := scanLines([]byte("abc\r"), false)
	require.NoError(t, err)
	assert.Zero(t, advance)
	assert.Nil(t, token)

	advance, token, err = scanLines([]byte("abc\r\nrest"), false)
	require.NoError(t, err)
	assert.Equal(t, 5, advance)
	assert.Equal(t, "abc", string(token))
}

// collectCancelled drains a source with an already cancelled context
func collectCancelled(src Source) ([]TextUnit, []error) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var units []TextUnit
	var errs []error
	for unit, err := range src.Units(ctx) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, unit)
	}
	return units, errs
}

func TestSources_StopWhenCancelled(t *testing.T) {
	path := writeFile(t, "users.txt", "ABCDE1234F\n9876543210\n")
	file, err := NewFile(path)
	require.NoError(t, err)

	db := NewDatabase(&fakeCatalog{
		tables: []string{"users"},
		rows:   map[string][][]any{"users": {{"ABCDE1234F"}}},
	})

	bucket := NewBucket(&fakeStore{
		objects: []ObjectInfo{{Key: "users.txt"}},
		bodies:  map[string]string{"users.txt": "ABCDE1234F"},
	}, "exports")

	for _, src := range []Source{file, db, bucket} {
		t.Run(src.Name(), func(t *testing.T) {
			units, errs := collectCancelled(src)

			assert.Empty(t, units)
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], context.Canceled)
			assert.False(t, IsPartial(errs[0]))
		})
	}
}

func TestFile_EmptyFile(t *testing.T) {
	src, err := NewFile(writeFile(t, "empty.sql", ""))
	require.NoError(t, err)

	units, errs := collect(t, src)
	assert.Empty(t, units)
	assert.Empty(t, errs)
}

func TestFile_LossyDecode(t *testing.T) {
	src, err := NewFile(writeFile(t, "dump.txt", "PAN \xff\xfeABCDE1234F\n"))
	require.NoError(t, err)

	units, errs := collect(t, src)
	require.Empty(t, errs)
	require.Len(t, units, 1)
	assert.Equal(t, "PAN ABCDE1234F", units[0].Text)
}

func TestFile_Validation(t *testing.T) {
	for _, name := range []string{"report.pdf", "archive.csv.gz", "noext"} {
		_, err := NewFile(filepath.Join(t.TempDir(), name))

		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, name)
	}

	_, err := NewFile("UPPER.CSV")
	assert.NoError(t, err)
}

func TestFile_Missing(t *testing.T) {
	src, err := NewFile(filepath.Join(t.TempDir(), "gone.txt"))
	require.NoError(t, err)

	_, errs := collect(t, src)
	require.Len(t, errs, 1)

	var notFound *NotFoundError
	assert.ErrorAs(t, errs[0], &notFound)
	assert.False(t, IsPartial(errs[0]))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSpoolUpload(t *testing.T) {
	t.Run("Close removes the copy", func(t *testing.T) {
		dir := t.TempDir()

		src, err := SpoolUpload(dir, "../../etc/users.csv", strings.NewReader("Raj,9876543210\n"))
		require.NoError(t, err)
		assert.Equal(t, "users.csv", src.Name())
		assert.Equal(t, dir, filepath.Dir(src.Path()))
		assert.FileExists(t, src.Path())

		units, errs := collect(t, src)
		require.Empty(t, errs)
		require.Len(t, units, 1)

		require.NoError(t, src.Close())
		assert.NoFileExists(t, src.Path())
		assert.NoError(t, src.Close())
	})

	t.Run("Rejected before any I/O", func(t *testing.T) {
		dir := t.TempDir()

		_, err := SpoolUpload(dir, "photo.png", strings.NewReader("data"))
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Failed copy leaves nothing behind", func(t *testing.T) {
		dir := t.TempDir()

		_, err := SpoolUpload(dir, "users.txt", failingReader{})
		require.Error(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Plain files are never removed", func(t *testing.T) {
		path := writeFile(t, "keep.txt", "x")
		src, err := NewFile(path)
		require.NoError(t, err)

		require.NoError(t, src.Close())
		assert.FileExists(t, path)
	})
}

type fakeCatalog struct {
	tables    []string
	tablesErr error
	rows      map[string][][]any
	failing   map[string]error
	limits    []int
	closed    bool
}

func (c *fakeCatalog) Tables(ctx context.Context) ([]string, error) {
	return c.tables, c.tablesErr
}

func (c *fakeCatalog) SampleRows(ctx context.Context, table string, limit int) ([][]any, error) {
	c.limits = append(c.limits, limit)
	if err := c.failing[table]; err != nil {
		return nil, err
	}
	return c.rows[table], nil
}

func (c *fakeCatalog) Close() error {
	c.closed = true
	return nil
}

func TestDatabase_PartialTableFailure(t *testing.T) {
	catalog := &fakeCatalog{
		tables: []string{"customers", "audit", "orders"},
		rows: map[string][][]any{
			"customers": {{"Raj", "9876543210", "Mumbai"}},
			"orders":    {{int64(1), "ABCDE1234F"}, {int64(2), nil}},
		},
		failing: map[string]error{"audit": errors.New("permission denied for table audit")},
	}

	src := NewDatabase(catalog)
	assert.Equal(t, DatabaseSourceName, src.Name())

	units, errs := collect(t, src)
	require.Len(t, errs, 1)
	assert.True(t, IsPartial(errs[0]))
	assert.Contains(t, errs[0].Error(), "audit")

	assert.Equal(t, []TextUnit{
		{Text: "('Raj', '9876543210', 'Mumbai')", Location: "Table 'customers' -> Row 1"},
		{Text: "(1, 'ABCDE1234F')", Location: "Table 'orders' -> Row 1"},
		{Text: "(2, None)", Location: "Table 'orders' -> Row 2"},
	}, units)

	for _, limit := range catalog.limits {
		assert.Equal(t, MaxRowsPerTable, limit)
	}

	require.NoError(t, src.Close())
	assert.True(t, catalog.closed)
}

func TestDatabase_FatalErrors(t *testing.T) {
	t.Run("No tables", func(t *testing.T) {
		_, errs := collect(t, NewDatabase(&fakeCatalog{}))
		require.Len(t, errs, 1)

		var notFound *NotFoundError
		assert.ErrorAs(t, errs[0], &notFound)
	})

	t.Run("Introspection fails", func(t *testing.T) {
		_, errs := collect(t, NewDatabase(&fakeCatalog{tablesErr: errors.New("connection refused")}))
		require.Len(t, errs, 1)

		var connErr *ConnectionError
		assert.ErrorAs(t, errs[0], &connErr)
		assert.False(t, IsPartial(errs[0]))
	})
}

func TestFormatRow(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "('only',)", FormatRow([]any{"only"}))
	assert.Equal(t, "(1, 2.5, true, None)", FormatRow([]any{int64(1), 2.5, true, nil}))
	assert.Equal(t, "('bytes', '2024-03-01T10:00:00Z')", FormatRow([]any{[]byte("bytes"), ts}))
	assert.Equal(t, "()", FormatRow(nil))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://admin:xxxxx@db:5432/app", MaskDSN("postgres://admin:s3cret@db:5432/app"))
	assert.Equal(t, "host=db dbname=app", MaskDSN("host=db dbname=app"))
	assert.Equal(t, "host=db password=xxxxx dbname=app", MaskDSN("host=db password=s3cret dbname=app"))
	assert.Equal(t, "host=db password=xxxxx", MaskDSN("host=db password='s p'"))
}

type fakeStore struct {
	objects []ObjectInfo
	listErr error
	bodies  map[string]string
	getErrs map[string]error
	fetched []string
}

func (s *fakeStore) List(ctx context.Context, bucket string, max int) ([]ObjectInfo, error) {
	return s.objects, s.listErr
}

func (s *fakeStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.fetched = append(s.fetched, key)
	if err := s.getErrs[key]; err != nil {
		return nil, err
	}
	return []byte(s.bodies[key]), nil
}

func TestBucket_Units(t *testing.T) {
	store := &fakeStore{
		objects: []ObjectInfo{
			{Key: "exports/users.csv"},
			{Key: "images/logo.png"},
			{Key: "broken.log"},
			{Key: "notes.txt"},
		},
		bodies: map[string]string{
			"exports/users.csv": "Raj,9876543210\r\nPriya,ABCDE1234F",
			"notes.txt":         "clean \xffline\n",
		},
		getErrs: map[string]error{"broken.log": errors.New("NoSuchKey")},
	}

	src := NewBucket(store, "customer-data")
	assert.Equal(t, "S3 Bucket: customer-data", src.Name())

	units, errs := collect(t, src)
	require.Len(t, errs, 1)
	assert.True(t, IsPartial(errs[0]))

	assert.Equal(t, []TextUnit{
		{Text: "Raj,9876543210", Location: "exports/users.csv -> Line 1"},
		{Text: "Priya,ABCDE1234F", Location: "exports/users.csv -> Line 2"},
		{Text: "clean line", Location: "notes.txt -> Line 1"},
	}, units)
	assert.NotContains(t, store.fetched, "images/logo.png")
}

func TestBucket_ObjectCap(t *testing.T) {
	store := &fakeStore{bodies: map[string]string{}}
	for i := 0; i < MaxObjects+5; i++ {
		store.objects = append(store.objects, ObjectInfo{Key: fmt.Sprintf("f%02d.txt", i)})
	}

	_, errs := collect(t, NewBucket(store, "big"))
	require.Empty(t, errs)
	assert.Len(t, store.fetched, MaxObjects)
}

func TestBucket_FatalErrors(t *testing.T) {
	t.Run("Listing fails", func(t *testing.T) {
		_, errs := collect(t, NewBucket(&fakeStore{listErr: errors.New("invalid AWS credentials")}, "b"))
		require.Len(t, errs, 1)

		var connErr *ConnectionError
		require.ErrorAs(t, errs[0], &connErr)
		assert.Contains(t, connErr.Error(), "invalid AWS credentials")
	})

	t.Run("Empty bucket", func(t *testing.T) {
		_, errs := collect(t, NewBucket(&fakeStore{}, "b"))
		require.Len(t, errs, 1)

		var notFound *NotFoundError
		assert.ErrorAs(t, errs[0], &notFound)
	})
}

func TestDescribeS3Error(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"InvalidAccessKeyId", "invalid AWS credentials"},
		{"SignatureDoesNotMatch", "invalid AWS credentials"},
		{"InvalidToken", "invalid AWS credentials"},
		{"ExpiredToken", "invalid AWS credentials"},
		{"NoSuchBucket", "bucket does not exist"},
		{"AccessDenied", "access denied"},
		{"SlowDown", "AWS error: Please reduce your request rate."},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := &smithy.GenericAPIError{Code: tt.code, Message: "Please reduce your request rate."}
			wrapped := fmt.Errorf("operation ListObjectsV2: %w", apiErr)

			assert.EqualError(t, describeS3Error(wrapped), tt.want)
		})
	}

	t.Run("Non-API errors pass through", func(t *testing.T) {
		plain := errors.New("dial tcp: i/o timeout")
		assert.Same(t, plain, describeS3Error(plain))
	})
}

func TestBucketTarget_Validate(t *testing.T) {
	assert.Error(t, BucketTarget{AccessKey: "a", SecretKey: "s"}.Validate())
	assert.Error(t, BucketTarget{Bucket: "b"}.Validate())
	assert.NoError(t, BucketTarget{AccessKey: "a", SecretKey: "s", Bucket: "b"}.Validate())
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a", "b", "c"}, splitLines("a\r\nb\rc\n"))
	assert.Equal(t, []string{""}, splitLines("\n"))
}
