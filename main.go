package main

import (
	"fmt"
	"log"

	"github.com/deemkeen/markodon/activitypub"
	"github.com/deemkeen/markodon/db"
	"github.com/deemkeen/markodon/domain"
	"github.com/deemkeen/markodon/util"
	"github.com/deemkeen/markodon/web"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	database, err := db.Open(util.ResolveFilePath(conf.Conf.DbFile))
	if err != nil {
		log.Fatalln(err)
	}
	defer database.Close()

	keys := activitypub.NewKeyStore(database)

	// Key generation happens before the listener accepts traffic so a
	// signed request is never attempted without a keypair.
	if err := keys.EnsureKeyPair(conf.Conf.Username); err != nil {
		log.Fatalln(err)
	}

	identity, err := buildIdentity(conf, keys)
	if err != nil {
		log.Fatalln(err)
	}

	dir := activitypub.NewDirectory(database)
	fed := activitypub.NewFederation(database, identity, keys, dir)

	if conf.Conf.WithAp {
		activitypub.StartDeliveryWorker(database, keys, identity)
	} else {
		log.Println("Federation disabled, running in local-only mode")
	}

	if err := web.Router(conf, database, fed); err != nil {
		log.Fatalln(err)
	}
}

// buildIdentity assembles the singleton actor from the config profile
// and the persisted keypair.
func buildIdentity(conf *util.AppConfig, keys *activitypub.KeyStore) (domain.ActorIdentity, error) {
	pubkey, err := keys.PublicKeyPem()
	if err != nil {
		return domain.ActorIdentity{}, err
	}
	privkey, err := keys.PrivateKeyPem()
	if err != nil {
		return domain.ActorIdentity{}, err
	}

	return domain.ActorIdentity{
		Username:      conf.Conf.Username,
		Domain:        conf.Conf.Domain,
		DisplayName:   conf.Conf.DisplayName,
		Summary:       conf.Conf.Summary,
		AvatarURL:     conf.Conf.AvatarURL,
		PublicKeyPem:  pubkey,
		PrivateKeyPem: privkey,
	}, nil
}
