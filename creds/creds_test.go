package creds_test

import (
	"os"
	"path/filepath"

	"github.com/derektruong/s3xfer/creds"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func writeTemp(name, content string) string {
	path := filepath.Join(GinkgoT().TempDir(), name)
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

var _ = Describe("Load", func() {
	It("should read the default profile", func() {
		path := writeTemp("credentials", `
# AWS credentials
[default]
aws_access_key_id = AKIDEXAMPLE
aws_secret_access_key = secret/example
`)
		c, err := creds.Load(path, "")
		Expect(err).ToNot(HaveOccurred())
		Expect(c.AccessKey).To(Equal("AKIDEXAMPLE"))
		Expect(c.SecretKey).To(Equal("secret/example"))
	})

	It("should select a named profile", func() {
		path := writeTemp("credentials", `
[default]
aws_access_key_id = DEFAULTKEY
aws_secret_access_key = defaultsecret

[ceph-lab]
aws_access_key_id = LABKEY
aws_secret_access_key = labsecret
`)
		c, err := creds.Load(path, "ceph-lab")
		Expect(err).ToNot(HaveOccurred())
		Expect(c.AccessKey).To(Equal("LABKEY"))
	})

	It("should append continuation lines to the previous key", func() {
		path := writeTemp("credentials", `
[default]
aws_access_key_id = SPLIT
KEY
aws_secret_access_key = secret
`)
		c, err := creds.Load(path, "default")
		Expect(err).ToNot(HaveOccurred())
		Expect(c.AccessKey).To(Equal("SPLITKEY"))
	})

	It("should strip trailing comments from values", func() {
		path := writeTemp("credentials", `
[default]
aws_access_key_id = KEY # the key
aws_secret_access_key = secret
`)
		c, err := creds.Load(path, "")
		Expect(err).ToNot(HaveOccurred())
		Expect(c.AccessKey).To(Equal("KEY"))
	})

	It("should fail for an unknown profile", func() {
		path := writeTemp("credentials", `
[default]
aws_access_key_id = KEY
aws_secret_access_key = secret
`)
		_, err := creds.Load(path, "nope")
		Expect(err).To(MatchError(ContainSubstring("profile nope not found")))
	})

	It("should fail for a missing file", func() {
		_, err := creds.Load(filepath.Join(GinkgoT().TempDir(), "absent"), "")
		Expect(err).To(HaveOccurred())
	})

	It("should fail for keys outside any section", func() {
		path := writeTemp("credentials", "aws_access_key_id = KEY\n")
		_, err := creds.Load(path, "")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadEndpoints", func() {
	It("should read one URL per line, skipping blanks and comments", func() {
		path := writeTemp("endpoints", `
# pool of equivalent front-ends
http://127.0.0.1:9000

http://127.0.0.1:9001
http://127.0.0.1:9002
`)
		endpoints, err := creds.LoadEndpoints(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(endpoints).To(Equal([]string{
			"http://127.0.0.1:9000",
			"http://127.0.0.1:9001",
			"http://127.0.0.1:9002",
		}))
	})

	It("should fail for an empty pool", func() {
		path := writeTemp("endpoints", "# nothing here\n")
		_, err := creds.LoadEndpoints(path)
		Expect(err).To(MatchError(ContainSubstring("no endpoints")))
	})
})
