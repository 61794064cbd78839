// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package authz decides role checks with Casbin.

The embedded model answers one question: does a held role grant a required
role. A role grants itself, and the configured admin role is a superuser
that grants every role.

	enf, err := authz.NewEnforcer("admin")
	if err != nil {
	    return err
	}
	enf.Allowed([]string{"user"}, "user")  // true
	enf.Allowed([]string{"admin"}, "audit") // true
	enf.Allowed(nil, "user")                // false

The enforcer is safe for concurrent use. Principal-level rules (a missing
principal, a principal without roles) belong to the caller.
*/
package authz
