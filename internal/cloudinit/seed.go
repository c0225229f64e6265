// Package cloudinit generates NoCloud seed ISOs attached to freshly
// provisioned domains.
//
// The seed carries two files, user-data and meta-data, following the
// cloud-init NoCloud datasource specification with the "CIDATA" volume label.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/kdomanski/iso9660"
	"gopkg.in/yaml.v3"

	"github.com/virtforge/virtforge/internal/config"
)

// userData is the cloud-config document, marshaled to YAML behind the
// "#cloud-config" header.
type userData struct {
	Hostname          string    `yaml:"hostname"`
	FQDN              string    `yaml:"fqdn"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Chpasswd          *chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
}

type chpasswd struct {
	Expire bool   `yaml:"expire"`
	List   string `yaml:"list"`
}

type metaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData renders the user-data document for one domain.
func GenerateUserData(ci *config.CloudInit, domainName string) (string, error) {
	if ci == nil {
		return "", fmt.Errorf("cloud-init data cannot be nil")
	}

	hostname := domainName
	fqdn := domainName
	if ci.FQDN != "" {
		fqdn = ci.FQDN
		hostname = strings.SplitN(fqdn, ".", 2)[0]
	}

	ud := userData{
		Hostname:          hostname,
		FQDN:              fqdn,
		SSHAuthorizedKeys: ci.SSHKeys,
	}
	if ci.RootPasswordHash != "" {
		ud.Chpasswd = &chpasswd{List: "root:" + ci.RootPasswordHash}
	}

	data, err := yaml.Marshal(&ud)
	if err != nil {
		return "", fmt.Errorf("marshal user-data: %w", err)
	}
	return "#cloud-config\n" + string(data), nil
}

// GenerateMetaData renders the meta-data document for one domain.
func GenerateMetaData(domainName string) (string, error) {
	md := metaData{
		InstanceID:    "virtforge-" + domainName,
		LocalHostname: domainName,
	}
	data, err := yaml.Marshal(&md)
	if err != nil {
		return "", fmt.Errorf("marshal meta-data: %w", err)
	}
	return string(data), nil
}

// WriteSeedISO builds the NoCloud seed ISO for a domain and writes it to
// path.
func WriteSeedISO(ci *config.CloudInit, domainName, path string) error {
	ud, err := GenerateUserData(ci, domainName)
	if err != nil {
		return fmt.Errorf("generate user-data: %w", err)
	}
	md, err := GenerateMetaData(domainName)
	if err != nil {
		return fmt.Errorf("generate meta-data: %w", err)
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return fmt.Errorf("create ISO writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader([]byte(ud)), "user-data"); err != nil {
		return fmt.Errorf("add user-data: %w", err)
	}
	if err := writer.AddFile(bytes.NewReader([]byte(md)), "meta-data"); err != nil {
		return fmt.Errorf("add meta-data: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create seed ISO file: %w", err)
	}
	defer f.Close()

	// The CIDATA label is what the NoCloud datasource scans for.
	if err := writer.WriteTo(f, "CIDATA"); err != nil {
		return fmt.Errorf("write seed ISO: %w", err)
	}
	return nil
}
