package whatsapp

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/util/keys"
	"google.golang.org/protobuf/proto"
)

type credsKeyPair struct {
	Public  string `json:"public"`
	Private string `json:"private"`
}

type credsSignedPreKey struct {
	KeyPair   credsKeyPair `json:"keyPair"`
	KeyID     uint32       `json:"keyId"`
	Signature string       `json:"signature"`
}

type credsMe struct {
	ID   string `json:"id"`
	LID  string `json:"lid,omitempty"`
	Name string `json:"name,omitempty"`
}

// Creds is the portable credential blob relayed to the linked account
type Creds struct {
	NoiseKey          credsKeyPair      `json:"noiseKey"`
	SignedIdentityKey credsKeyPair      `json:"signedIdentityKey"`
	SignedPreKey      credsSignedPreKey `json:"signedPreKey"`
	RegistrationID    uint32            `json:"registrationId"`
	AdvSecretKey      string            `json:"advSecretKey"`
	Me                *credsMe          `json:"me,omitempty"`
	Account           string            `json:"account,omitempty"`
	Platform          string            `json:"platform,omitempty"`
	BusinessName      string            `json:"businessName,omitempty"`
	Registered        bool              `json:"registered"`
}

func encodeKey(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func encodeKeyPair(kp *keys.KeyPair) credsKeyPair {
	if kp == nil || kp.Pub == nil || kp.Priv == nil {
		return credsKeyPair{}
	}
	return credsKeyPair{Public: encodeKey(kp.Pub[:]), Private: encodeKey(kp.Priv[:])}
}

// CredsFromDevice snapshots the identity material held by a device store
func CredsFromDevice(device *store.Device) (*Creds, error) {
	if device == nil {
		return nil, errors.New("device store is nil")
	}
	if device.NoiseKey == nil || device.IdentityKey == nil {
		return nil, errors.New("device store has no key material")
	}

	creds := &Creds{
		NoiseKey:          encodeKeyPair(device.NoiseKey),
		SignedIdentityKey: encodeKeyPair(device.IdentityKey),
		RegistrationID:    device.RegistrationID,
		AdvSecretKey:      encodeKey(device.AdvSecretKey),
		Platform:          device.Platform,
		BusinessName:      device.BusinessName,
	}
	if spk := device.SignedPreKey; spk != nil {
		creds.SignedPreKey = credsSignedPreKey{
			KeyPair: encodeKeyPair(&spk.KeyPair),
			KeyID:   spk.KeyID,
		}
		if spk.Signature != nil {
			creds.SignedPreKey.Signature = encodeKey(spk.Signature[:])
		}
	}
	if device.ID != nil {
		creds.Registered = true
		creds.Me = &credsMe{ID: device.ID.String(), Name: device.PushName}
		if !device.LID.IsEmpty() {
			creds.Me.LID = device.LID.String()
		}
	}
	if device.Account != nil {
		raw, err := proto.Marshal(device.Account)
		if err != nil {
			return nil, fmt.Errorf("encode account identity: %w", err)
		}
		creds.Account = encodeKey(raw)
	}
	return creds, nil
}

// MarshalCreds serializes the device's credentials into the relay blob
func MarshalCreds(device *store.Device) ([]byte, error) {
	creds, err := CredsFromDevice(device)
	if err != nil {
		return nil, err
	}
	return json.Marshal(creds)
}
