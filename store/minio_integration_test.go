package store_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-logr/logr"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/marcboeker/s3xfer/store"
)

// This suite boots a real MinIO container and drives store.Client against
// it end to end, the same way the teacher's storage/s3 package backs its
// destination_test.go suite with a real S3-compatible server rather than
// a mock: List/Head/Get/Put/Delete are AWS SDK wire calls, and a mock only
// proves the client issues the right request shape, never that a real
// server accepts and round-trips it.
const (
	minioRootUser     = "minioadmin"
	minioRootPassword = "minioadmin"
	minioImage        = "minio/minio:RELEASE.2025-02-07T23-21-09Z"
	minioPort         = "9000"
	minioConsolePort  = "9001"
	integrationBucket = "s3xfer-integration"
)

var integrationClient *store.Client

var _ = BeforeSuite(func() {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	DeferCleanup(cancel)

	By("setting up the docker network")
	net, err := network.New(ctx)
	if err != nil {
		Skip("docker is not available to back the MinIO integration suite: " + err.Error())
	}
	DeferCleanup(net.Remove, context.Background())

	By("starting the MinIO container")
	endpoint, accessKey, secretKey, err := startMinIO(ctx, net.Name)
	if err != nil {
		Skip("could not start MinIO container: " + err.Error())
	}

	By("pointing an AWS SDK client at it and creating the bucket")
	endpoint = "http://" + strings.Replace(endpoint, "localhost", "127.0.0.1", 1)
	rawClient := awss3.New(awss3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: accessKey, SecretAccessKey: secretKey}, nil
		}),
	})
	_, err = rawClient.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(integrationBucket)})
	Expect(err).ToNot(HaveOccurred())

	integrationClient = store.NewClient(rawClient, integrationBucket, logr.Discard())
})

func startMinIO(ctx context.Context, networkName string) (endpoint, accessKey, secretKey string, err error) {
	prefix := gofakeit.Letter() + gofakeit.Password(true, false, true, false, false, 5)
	nameAlias := prefix + "-minio"
	c, err := minio.Run(
		ctx,
		minioImage,
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        minioImage,
				ExposedPorts: []string{minioPort, minioConsolePort},
				Env: map[string]string{
					"MINIO_ROOT_USER":     minioRootUser,
					"MINIO_ROOT_PASSWORD": minioRootPassword,
				},
				Cmd:            []string{"server", "--console-address", ":" + minioConsolePort, "/data"},
				Name:           nameAlias,
				Networks:       []string{networkName},
				NetworkAliases: map[string][]string{networkName: {nameAlias}},
				WaitingFor:     wait.ForListeningPort(minioPort + "/tcp"),
			},
		}),
	)
	if err != nil {
		return "", "", "", err
	}

	endpoint, err = c.Host(ctx)
	if err != nil {
		return "", "", "", err
	}

	accessKey = gofakeit.HexUint(128)[2:]
	secretKey = gofakeit.HexUint(128)[2:]
	if _, _, err = c.Exec(ctx, []string{"mc", "admin", "user", "add", nameAlias, accessKey, secretKey, "--no-color"}); err != nil {
		return "", "", "", err
	}
	if _, _, err = c.Exec(ctx, []string{"mc", "admin", "policy", "attach", nameAlias, "readwrite", "--user=" + accessKey, "--no-color"}); err != nil {
		return "", "", "", err
	}
	return endpoint, accessKey, secretKey, nil
}

var _ = Describe("Client against a real MinIO server", func() {
	BeforeEach(func() {
		if integrationClient == nil {
			Skip("MinIO integration suite was not set up (see BeforeSuite skip reason)")
		}
	})

	It("round-trips a single-part put/get and reports a non-empty ETag", func() {
		ctx := context.Background()
		key := "data/integration/" + gofakeit.UUID()
		body := []byte("the value of key-1")

		etag, err := integrationClient.Put(ctx, key, store.SinglePart(body), map[string]string{"Mtime": "2013-10-04T14:26:04Z"}, 1)
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).ToNot(BeEmpty())

		size, userMeta, err := integrationClient.Head(ctx, key)
		Expect(err).ToNot(HaveOccurred())
		Expect(size).To(Equal(int64(len(body))))
		Expect(userMeta["Mtime"]).To(Equal("2013-10-04T14:26:04Z"))

		res, err := integrationClient.Get(ctx, key, "", "")
		Expect(err).ToNot(HaveOccurred())
		defer res.Body.Close()
		got, err := io.ReadAll(res.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(body))
	})

	It("uploads a multi-part object across several parts and reassembles it intact", func() {
		ctx := context.Background()
		key := "data/integration/" + gofakeit.UUID()

		partA := bytes.Repeat([]byte("A"), 5*1024*1024)
		partB := bytes.Repeat([]byte("B"), 5*1024*1024)
		parts := make(chan store.Part, 2)
		parts <- store.Part{Number: 1, Size: int64(len(partA)), Body: bytes.NewReader(partA)}
		parts <- store.Part{Number: 2, Size: int64(len(partB)), Body: bytes.NewReader(partB)}
		close(parts)

		_, err := integrationClient.Put(ctx, key, parts, nil, 2)
		Expect(err).ToNot(HaveOccurred())

		res, err := integrationClient.Get(ctx, key, "", "")
		Expect(err).ToNot(HaveOccurred())
		defer res.Body.Close()
		got, err := io.ReadAll(res.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(append(partA, partB...)))
	})

	It("surfaces a distinct not-found error for a missing key and treats delete-of-missing as success", func() {
		ctx := context.Background()
		key := "data/integration/does-not-exist-" + gofakeit.UUID()

		_, _, err := integrationClient.Head(ctx, key)
		Expect(store.IsNotFound(err)).To(BeTrue())

		Expect(integrationClient.Delete(ctx, key)).To(Succeed())
	})

	It("deletes an object so a subsequent head sees it as absent", func() {
		ctx := context.Background()
		key := "data/integration/" + gofakeit.UUID()
		_, err := integrationClient.Put(ctx, key, store.SinglePart([]byte("gone soon")), nil, 1)
		Expect(err).ToNot(HaveOccurred())

		Expect(integrationClient.Delete(ctx, key)).To(Succeed())

		_, _, err = integrationClient.Head(ctx, key)
		Expect(store.IsNotFound(err)).To(BeTrue())
	})

	It("lists keys under a prefix", func() {
		ctx := context.Background()
		root := "data/integration/list-" + gofakeit.UUID() + "/"
		for _, name := range []string{"a", "b", "c"} {
			_, err := integrationClient.Put(ctx, root+name, store.SinglePart([]byte(name)), nil, 1)
			Expect(err).ToNot(HaveOccurred())
		}

		entries, _, err := integrationClient.List(ctx, root, "")
		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(HaveLen(3))
	})
})
