package specsource

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	bucket  string
	key     string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	body, ok := f.objects[f.bucket+"/"+f.key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func decode(t *testing.T, doc *spec.Document) *spec.SceneSpec {
	t.Helper()
	s, err := doc.Decode()
	require.NoError(t, err)
	return s
}

func TestLoad_JSONFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, os.WriteFile(path, testutil.MustJSON(t, testutil.DungeonSpec()), 0o644))

	// --- Act ---
	doc, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, spec.DomainProceduralDungeon, decode(t, doc).Domain)
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scene.yaml")
	yamlDoc := "version: \"1.0.0\"\ndomain: film_interior\nseed: 3\nobjects:\n  - id: sofa\n    type: cube\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	doc, err := NewLoader().Load(context.Background(), path)

	require.NoError(t, err)
	s := decode(t, doc)
	assert.Equal(t, int64(3), s.Seed)
	require.Len(t, s.Objects, 1)
	assert.Equal(t, "sofa", s.Objects[0].ID)
}

func TestLoad_Stdin(t *testing.T) {
	t.Parallel()

	stdin := strings.NewReader(string(testutil.MustJSON(t, testutil.FilmSpec())))

	doc, err := NewLoader(WithStdin(stdin)).Load(context.Background(), Stdin)

	require.NoError(t, err)
	assert.Equal(t, spec.DomainFilmInterior, decode(t, doc).Domain)
}

func TestLoad_S3(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	client := &fakeS3{objects: map[string]string{
		"scenes/dungeons/a.json": string(testutil.MustJSON(t, testutil.DungeonSpec())),
	}}
	loader := NewLoader(WithS3Client(client))

	// --- Act ---
	doc, err := loader.Load(context.Background(), "s3://scenes/dungeons/a.json")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "scenes", client.bucket)
	assert.Equal(t, "dungeons/a.json", client.key)
	assert.NotEmpty(t, decode(t, doc).Objects)

	_, err = loader.Load(context.Background(), "s3://scenes/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchKey")
}

func TestLoad_ExtractsFromModelReply(t *testing.T) {
	t.Parallel()

	reply := "Here is your scene:\n```json\n" + string(testutil.MustJSON(t, testutil.FilmSpec())) + "\n```\nEnjoy!"
	loader := NewLoader(WithStdin(strings.NewReader(reply)), WithExtract(true))

	doc, err := loader.Load(context.Background(), Stdin)

	require.NoError(t, err)
	assert.Equal(t, spec.DomainFilmInterior, decode(t, doc).Domain)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		location string
		loader   *Loader
		wantErr  error
		contains string
	}{
		{name: "empty location", location: "", loader: NewLoader(), wantErr: ErrInvalidLocation},
		{name: "s3 without key", location: "s3://bucket", loader: NewLoader(WithS3Client(&fakeS3{})), wantErr: ErrInvalidLocation},
		{name: "missing file", location: filepath.Join(os.TempDir(), "scenegrid-does-not-exist.json"), loader: NewLoader(), wantErr: os.ErrNotExist},
		{name: "empty stdin", location: Stdin, loader: NewLoader(WithStdin(strings.NewReader("  "))), wantErr: spec.ErrEmptyDocument},
		{name: "malformed JSON", location: Stdin, loader: NewLoader(WithStdin(strings.NewReader("{"))), contains: "failed to parse"},
		{name: "nothing to extract", location: Stdin, loader: NewLoader(WithStdin(strings.NewReader("no json here")), WithExtract(true)), wantErr: spec.ErrNoJSONObject},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.loader.Load(context.Background(), tc.location)

			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
		})
	}
}

func TestParseS3(t *testing.T) {
	t.Parallel()

	bucket, key, err := ParseS3("s3://b/nested/path.yaml")

	require.NoError(t, err)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "nested/path.yaml", key)
	assert.Equal(t, FormatYAML, FormatOf(key))
	assert.Equal(t, FormatJSON, FormatOf("scene"))
}
