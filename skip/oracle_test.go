package skip_test

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/marcboeker/s3xfer/internal/xferfile"
	"github.com/marcboeker/s3xfer/meta"
	"github.com/marcboeker/s3xfer/skip"
	"github.com/marcboeker/s3xfer/store"
	mock_store "github.com/marcboeker/s3xfer/store/mock"
)

func TestSkipOracle(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "skip oracle suite")
}

type notFoundError struct{ smithy.APIError }

func (notFoundError) ErrorCode() string             { return "NoSuchKey" }
func (notFoundError) ErrorMessage() string          { return "not found" }
func (notFoundError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var _ = Describe("Oracle", func() {
	var (
		mockCtrl *gomock.Controller
		mockAPI  *mock_store.MockAPI
		layer    *meta.Layer
		mtime    time.Time
		tmpFile  string
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		mockAPI = mock_store.NewMockAPI(mockCtrl)
		client := store.NewClient(mockAPI, "test-bucket", logr.Discard())
		layer = meta.NewLayer(client, "")
		mtime = time.Date(2013, 10, 4, 14, 26, 4, 0, time.UTC)

		f, err := os.CreateTemp("", "skip-oracle-*")
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString("hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())
		tmpFile = f.Name()
		DeferCleanup(func() { os.Remove(tmpFile) })
	})

	newOracle := func(policy skip.Policy) *skip.Oracle {
		storeClient := store.NewClient(mockAPI, "test-bucket", logr.Discard())
		return skip.NewOracle(storeClient, layer, policy)
	}

	It("never skips under PolicyAll", func(ctx context.Context) {
		o := newOracle(skip.PolicyAll)
		d, err := o.ShouldSkip(ctx, "key-1", skip.LocalFile{Path: tmpFile, Size: 5, Mtime: mtime})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Skip).To(BeFalse())
	})

	Describe("PolicyStat", func() {
		It("skips when size and mtime agree", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{
				ContentLength: aws.Int64(5),
				Metadata:      map[string]string{xferfile.HeaderMtime: xferfile.FormatMtime(mtime)},
			}, nil)
			mockAPI.EXPECT().GetObject(ctx, gomock.Cond(func(in *awss3.GetObjectInput) bool {
				return aws.ToString(in.Key) == "meta/key-1/md5sum"
			})).Return(&awss3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(fmt.Sprintf("%x\n", md5.Sum([]byte("hello"))))),
			}, nil)

			o := newOracle(skip.PolicyStat)
			d, err := o.ShouldSkip(ctx, "key-1", skip.LocalFile{Path: tmpFile, Size: 5, Mtime: mtime})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Skip).To(BeTrue())
			Expect(d.RemoteMD5).To(Equal(fmt.Sprintf("%x", md5.Sum([]byte("hello")))))
		})

		It("does not skip when the remote object is missing", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(nil, notFoundError{})

			o := newOracle(skip.PolicyStat)
			d, err := o.ShouldSkip(ctx, "key-1", skip.LocalFile{Path: tmpFile, Size: 5, Mtime: mtime})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Skip).To(BeFalse())
		})

		It("does not skip when sizes differ", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{
				ContentLength: aws.Int64(999),
				Metadata:      map[string]string{xferfile.HeaderMtime: xferfile.FormatMtime(mtime)},
			}, nil)

			o := newOracle(skip.PolicyStat)
			d, err := o.ShouldSkip(ctx, "key-1", skip.LocalFile{Path: tmpFile, Size: 5, Mtime: mtime})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Skip).To(BeFalse())
		})

		It("does not skip when mtimes differ", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{
				ContentLength: aws.Int64(5),
				Metadata:      map[string]string{xferfile.HeaderMtime: xferfile.FormatMtime(mtime.Add(time.Hour))},
			}, nil)

			o := newOracle(skip.PolicyStat)
			d, err := o.ShouldSkip(ctx, "key-1", skip.LocalFile{Path: tmpFile, Size: 5, Mtime: mtime})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Skip).To(BeFalse())
		})
	})

	Describe("PolicyMD5Sum", func() {
		It("skips when stat agrees and the local md5 matches the sidecar", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{
				ContentLength: aws.Int64(5),
				Metadata:      map[string]string{xferfile.HeaderMtime: xferfile.FormatMtime(mtime)},
			}, nil)
			mockAPI.EXPECT().GetObject(ctx, gomock.Any()).Return(&awss3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(fmt.Sprintf("%x\n", md5.Sum([]byte("hello"))))),
			}, nil)

			o := newOracle(skip.PolicyMD5Sum)
			d, err := o.ShouldSkip(ctx, "key-1", skip.LocalFile{Path: tmpFile, Size: 5, Mtime: mtime})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Skip).To(BeTrue())
		})

		It("does not skip when the local md5 disagrees with the sidecar", func(ctx context.Context) {
			mockAPI.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{
				ContentLength: aws.Int64(5),
				Metadata:      map[string]string{xferfile.HeaderMtime: xferfile.FormatMtime(mtime)},
			}, nil)
			mockAPI.EXPECT().GetObject(ctx, gomock.Any()).Return(&awss3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(fmt.Sprintf("%x\n", md5.Sum([]byte("different"))))),
			}, nil)

			o := newOracle(skip.PolicyMD5Sum)
			d, err := o.ShouldSkip(ctx, "key-1", skip.LocalFile{Path: tmpFile, Size: 5, Mtime: mtime})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Skip).To(BeFalse())
		})
	})
})
